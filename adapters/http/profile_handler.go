package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	profileUC "github.com/networkpro/user-service/internal/application/usecase/profile"
	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
	"github.com/networkpro/user-service/pkg/logger"
)

// multipartOverhead leaves room for part headers and boundaries around the file.
const multipartOverhead = 1 << 20

type ProfileHandler struct {
	profileUseCase   *profileUC.ProfileUseCase
	enforceOwnership bool
	logger           logger.Logger
}

func NewProfileHandler(uc *profileUC.ProfileUseCase, enforceOwnership bool, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase:   uc,
		enforceOwnership: enforceOwnership,
		logger:           log,
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.Error(apperror.NewInvalidInput("invalid user id", err))
		return 0, false
	}
	return id, true
}

// reader is the caller used for read paths.
func (h *ProfileHandler) reader(c *gin.Context) profile.Caller {
	if !h.enforceOwnership {
		return profile.Trusted()
	}
	return CallerFromGinContext(c)
}

// writer is the caller used for mutations. Anonymous callers are rejected
// before the store is touched.
func (h *ProfileHandler) writer(c *gin.Context) (profile.Caller, bool) {
	if !h.enforceOwnership {
		return profile.Trusted(), true
	}
	caller := CallerFromGinContext(c)
	if !caller.IsAuthenticated() {
		c.Error(apperror.NewUnauthorized("bearer token required to modify a profile", nil))
		return profile.Caller{}, false
	}
	return caller, true
}

func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for profile", err))
		return
	}

	name, _ := req.fullName()
	email := ""
	if req.Email != nil {
		email = *req.Email
	}

	p, err := h.profileUseCase.Create(c.Request.Context(), profileUC.CreateProfileInput{
		FullName: name,
		Email:    email,
		Fields:   req.ToPatch(),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToProfileDTO(p, fullView(p)))
}

func fullView(p *profile.UserProfile) profile.Visibility {
	vis, _ := p.VisibilityFor(profile.Trusted())
	return vis
}

func (h *ProfileHandler) ListPublicProfiles(c *gin.Context) {
	profiles, err := h.profileUseCase.GetAllPublicProfiles(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTOs(profiles, h.reader(c)))
}

// GetProfile shows owners everything and everyone else the public projection.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	p, found, err := h.profileUseCase.GetByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	if !found {
		c.Error(apperror.NewNotFound("User profile", c.Param("id")))
		return
	}
	vis, visible := p.VisibilityFor(h.reader(c))
	if !visible {
		c.Error(apperror.NewNotFound("User profile", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, ToProfileDTO(p, vis))
}

func (h *ProfileHandler) GetPublicProfile(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	p, found, err := h.profileUseCase.GetPublicByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	if !found {
		c.Error(apperror.NewNotFound("User profile", c.Param("id")))
		return
	}
	vis, _ := p.PublicVisibility()
	c.JSON(http.StatusOK, ToProfileDTO(p, vis))
}

func (h *ProfileHandler) ProfileExists(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	exists, err := h.profileUseCase.Exists(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, exists)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	caller, ok := h.writer(c)
	if !ok {
		return
	}

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for profile update", err))
		return
	}

	p, err := h.profileUseCase.Update(c.Request.Context(), profileUC.UpdateProfileInput{
		ID:     id,
		Caller: caller,
		Patch:  req.ToPatch(),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTO(p, fullView(p)))
}

func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	caller, ok := h.writer(c)
	if !ok {
		return
	}

	if err := h.profileUseCase.Delete(c.Request.Context(), id, caller); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) SearchProfiles(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for search", err))
		return
	}

	profiles, err := h.profileUseCase.SearchPublicProfiles(c.Request.Context(), req.ToCriteria())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTOs(profiles, h.reader(c)))
}

// splitList accepts both ?skills=a,b and ?skills=a&skills=b.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *ProfileHandler) SearchBySkills(c *gin.Context) {
	skills := splitList(c.QueryArray("skills"))

	profiles, err := h.profileUseCase.FindBySkills(c.Request.Context(), skills)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTOs(profiles, h.reader(c)))
}

func requiredQuery(c *gin.Context, name string) (string, bool) {
	v, ok := c.GetQuery(name)
	if !ok {
		c.Error(apperror.NewInvalidInput(name+" is required", nil))
		return "", false
	}
	return v, true
}

func (h *ProfileHandler) SearchByLocation(c *gin.Context) {
	location, ok := requiredQuery(c, "location")
	if !ok {
		return
	}

	profiles, err := h.profileUseCase.FindByLocation(c.Request.Context(), location)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTOs(profiles, h.reader(c)))
}

func (h *ProfileHandler) SearchByCompany(c *gin.Context) {
	company, ok := requiredQuery(c, "company")
	if !ok {
		return
	}

	profiles, err := h.profileUseCase.FindUsersByCompany(c.Request.Context(), company)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTOs(profiles, h.reader(c)))
}

func (h *ProfileHandler) SearchByCompletion(c *gin.Context) {
	threshold := 0
	if raw, ok := c.GetQuery("min"); ok {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.Error(apperror.NewInvalidInput("min must be an integer", err))
			return
		}
		threshold = v
	}

	profiles, err := h.profileUseCase.FindWithCompletionAbove(c.Request.Context(), threshold)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTOs(profiles, h.reader(c)))
}

func (h *ProfileHandler) GetCompletion(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	pct, err := h.profileUseCase.GetProfileCompletion(c.Request.Context(), id, h.reader(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, CompletionDTO{
		UserID:               id,
		CompletionPercentage: pct,
		IsComplete:           pct >= profile.CompleteThreshold,
	})
}

func (h *ProfileHandler) GetPrivacy(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	p, found, err := h.profileUseCase.GetByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	if !found {
		c.Error(apperror.NewNotFound("User profile", c.Param("id")))
		return
	}
	if _, visible := p.VisibilityFor(h.reader(c)); !visible {
		c.Error(apperror.NewNotFound("User profile", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, ToPrivacySettingsDTO(p))
}

func (h *ProfileHandler) UpdatePrivacy(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	caller, ok := h.writer(c)
	if !ok {
		return
	}

	var req PrivacySettingsDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for privacy settings", err))
		return
	}

	p, err := h.profileUseCase.UpdatePrivacy(c.Request.Context(), id, caller, req.ToDomain())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToPrivacySettingsDTO(p))
}

func (h *ProfileHandler) ReplaceSkills(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	caller, ok := h.writer(c)
	if !ok {
		return
	}

	var req ReplaceSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for skills", err))
		return
	}

	p, err := h.profileUseCase.ReplaceSkills(c.Request.Context(), id, caller, req.Skills)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTO(p, fullView(p)))
}

func (h *ProfileHandler) AddSkill(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	caller, ok := h.writer(c)
	if !ok {
		return
	}

	var req AddSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("skill is required", err))
		return
	}

	p, err := h.profileUseCase.AddSkill(c.Request.Context(), id, caller, req.Skill)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTO(p, fullView(p)))
}

func (h *ProfileHandler) RemoveSkill(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	caller, ok := h.writer(c)
	if !ok {
		return
	}

	p, err := h.profileUseCase.RemoveSkill(c.Request.Context(), id, caller, c.Param("skill"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToProfileDTO(p, fullView(p)))
}

func (h *ProfileHandler) UploadPicture(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	caller, ok := h.writer(c)
	if !ok {
		return
	}

	limit := h.profileUseCase.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(apperror.NewInvalidInput(fmt.Sprintf("file exceeds the %d byte limit", limit), err))
			return
		}
		c.Error(apperror.NewInvalidInput("No file uploaded.", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInvalidInput("failed to read uploaded file", err))
		return
	}
	defer file.Close()

	url, err := h.profileUseCase.UploadPicture(c.Request.Context(), profileUC.UploadPictureInput{
		ID:           id,
		Caller:       caller,
		Content:      file,
		OriginalName: fileHeader.Filename,
	})
	if err != nil {
		c.Error(err)
		return
	}
	h.logger.Info("Profile picture uploaded", zap.Int64("user_id", id), zap.Int64("size", fileHeader.Size))
	c.String(http.StatusOK, url)
}

func (h *ProfileHandler) DeletePicture(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	caller, ok := h.writer(c)
	if !ok {
		return
	}

	removed, err := h.profileUseCase.DeletePicture(c.Request.Context(), id, caller)
	if err != nil {
		c.Error(err)
		return
	}
	if !removed {
		c.Error(apperror.NewInvalidInput("No profile picture to delete.", nil))
		return
	}
	c.String(http.StatusOK, "Profile picture deleted successfully.")
}
