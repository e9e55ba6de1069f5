package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/media"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/night"
	"github.com/nightout-app/server/profile"
)

// ProfileHandler handles profile endpoints.
type ProfileHandler struct {
	profiles *profile.Service
	media    *media.Service
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles *profile.Service, m *media.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, media: m}
}

// Me handles GET /api/profile/me.
func (h *ProfileHandler) Me(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), mw.GetProfileID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":        p,
		"total_duration": night.FormatDuration(p.TotalSeconds),
		"total_distance": night.FormatDistance(p.TotalMeters),
	})
}

// Get handles GET /api/profile/:username.
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.profiles.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondErr(c, err)
		return
	}
	// Public view: never expose the email.
	p.Email = ""
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// Update handles PATCH /api/profile/me.
func (h *ProfileHandler) Update(c *gin.Context) {
	var in profile.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.profiles.Update(c.Request.Context(), mw.GetProfileID(c), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=64"`
}

// ChangePassword handles POST /api/profile/password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.profiles.ChangePassword(c.Request.Context(), mw.GetProfileID(c), req.OldPassword, req.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// UploadAvatar handles POST /api/profile/avatar (multipart "file").
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer src.Close()

	profileID := mw.GetProfileID(c)
	key, err := h.media.StoreAvatar(c.Request.Context(), profileID, file.Filename,
		file.Header.Get("Content-Type"), src)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := h.profiles.SetAvatar(c.Request.Context(), profileID, key); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": h.media.URL(key)})
}
