package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/networkpro/user-service/pkg/auth"
	"github.com/networkpro/user-service/pkg/logger"
	"github.com/networkpro/user-service/pkg/ratelimit"
)

type RouterConfig struct {
	ProfileHandler *ProfileHandler
	JWTService     *auth.JWTService
	Logger         logger.Logger
	RequestTimeout time.Duration
	// RateLimiter is optional.
	RateLimiter *ratelimit.KeyedRateLimiter
	// Uploads serves stored pictures under /uploads when set.
	Uploads http.FileSystem
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	router.Use(gin.Recovery())
	router.Use(AccessLog(cfg.Logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"*"},
		MaxAge:          12 * time.Hour,
	}))
	if cfg.RateLimiter != nil {
		router.Use(RateLimit(cfg.RateLimiter, cfg.Logger))
	}
	router.Use(ErrorMiddleware(cfg.Logger))

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
	if cfg.Uploads != nil {
		router.StaticFS("/uploads", cfg.Uploads)
	}

	h := cfg.ProfileHandler
	users := router.Group("/api/v1/users")
	users.Use(RequestTimeout(cfg.RequestTimeout), OptionalAuth(cfg.JWTService, cfg.Logger))
	{
		users.POST("", h.CreateProfile)
		users.GET("", h.ListPublicProfiles)

		users.POST("/search", h.SearchProfiles)
		users.GET("/search/skills", h.SearchBySkills)
		users.GET("/search/location", h.SearchByLocation)
		users.GET("/search/company", h.SearchByCompany)
		users.GET("/search/completion", h.SearchByCompletion)

		users.GET("/:id", h.GetProfile)
		users.PUT("/:id", h.UpdateProfile)
		users.DELETE("/:id", h.DeleteProfile)
		users.GET("/:id/public", h.GetPublicProfile)
		users.GET("/:id/exists", h.ProfileExists)
		users.GET("/:id/completion", h.GetCompletion)
		users.GET("/:id/privacy", h.GetPrivacy)
		users.PUT("/:id/privacy", h.UpdatePrivacy)
		users.POST("/:id/profile-picture", h.UploadPicture)
		users.DELETE("/:id/profile-picture", h.DeletePicture)
		users.PUT("/:id/skills", h.ReplaceSkills)
		users.POST("/:id/skills", h.AddSkill)
		users.DELETE("/:id/skills/:skill", h.RemoveSkill)
	}

	return router
}
