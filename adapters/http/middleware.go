package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
	"github.com/networkpro/user-service/pkg/auth"
	"github.com/networkpro/user-service/pkg/logger"
	"github.com/networkpro/user-service/pkg/ratelimit"
)

const (
	GinContextKeyCallerEmail = "callerEmail"
)

// OptionalAuth verifies a bearer token when one is sent. Requests without an
// Authorization header continue as anonymous; a bad token is rejected.
func OptionalAuth(jwtSvc *auth.JWTService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token format"})
			return
		}

		email, err := jwtSvc.ValidateToken(tokenString)
		if err != nil {
			log.Debug("Rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(GinContextKeyCallerEmail, email)
		c.Next()
	}
}

// CallerFromGinContext returns the verified caller, or an anonymous one.
func CallerFromGinContext(c *gin.Context) profile.Caller {
	email := c.GetString(GinContextKeyCallerEmail)
	if email == "" {
		return profile.Anonymous()
	}
	return profile.Authenticated(email)
}

// ErrorMiddleware renders the last error a handler attached with c.Error.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		status := apperror.ToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, zap.String("method", c.Request.Method), zap.String("path", c.FullPath()))
		} else {
			log.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
		}
		c.JSON(status, apperror.ToJSON(err))
	}
}

// RequestTimeout bounds the store and blob work of a request.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimit throttles per client IP and answers 429 once the bucket is empty.
func RateLimit(limiter *ratelimit.KeyedRateLimiter, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !limiter.Allow(key) {
			log.Warn("Rate limit exceeded", zap.String("ip", key), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}

func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
