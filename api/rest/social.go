package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/social"
)

// SocialHandler handles friendship endpoints.
type SocialHandler struct {
	social *social.Service
}

// NewSocialHandler creates a SocialHandler.
func NewSocialHandler(soc *social.Service) *SocialHandler {
	return &SocialHandler{social: soc}
}

type friendRequestBody struct {
	ProfileID int64 `json:"profile_id" binding:"required"`
}

// SendRequest handles POST /api/friends/requests.
func (h *SocialHandler) SendRequest(c *gin.Context) {
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := h.social.SendRequest(c.Request.Context(), mw.GetProfileID(c), req.ProfileID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"friendship": f})
}

// Accept handles POST /api/friends/requests/:id/accept.
func (h *SocialHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.social.Accept(c.Request.Context(), mw.GetProfileID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friendship": f})
}

// Reject handles POST /api/friends/requests/:id/reject.
func (h *SocialHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.social.Reject(c.Request.Context(), mw.GetProfileID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friendship": f})
}

// List handles GET /api/friends.
func (h *SocialHandler) List(c *gin.Context) {
	friends, err := h.social.ListFriends(c.Request.Context(), mw.GetProfileID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// Pending handles GET /api/friends/requests.
func (h *SocialHandler) Pending(c *gin.Context) {
	pending, err := h.social.ListPending(c.Request.Context(), mw.GetProfileID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": pending})
}

// Unfriend handles DELETE /api/friends/:id.
func (h *SocialHandler) Unfriend(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.social.Unfriend(c.Request.Context(), mw.GetProfileID(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unfriended"})
}
