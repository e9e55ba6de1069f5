package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/moderation"
	"gorm.io/datatypes"
)

// ModerationHandler handles report and block endpoints.
type ModerationHandler struct {
	moderation *moderation.Service
}

// NewModerationHandler creates a ModerationHandler.
func NewModerationHandler(m *moderation.Service) *ModerationHandler {
	return &ModerationHandler{moderation: m}
}

type reportRequest struct {
	EntityKind string         `json:"entity_kind" binding:"required"`
	EntityID   int64          `json:"entity_id" binding:"required"`
	Reason     string         `json:"reason" binding:"required,max=64"`
	Details    datatypes.JSON `json:"details"`
}

// Report handles POST /api/reports.
func (h *ModerationHandler) Report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.moderation.Report(c.Request.Context(), mw.GetProfileID(c),
		req.EntityKind, req.EntityID, req.Reason, req.Details)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": r})
}

type blockRequest struct {
	ProfileID int64 `json:"profile_id" binding:"required"`
}

// Block handles POST /api/blocks.
func (h *ModerationHandler) Block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.moderation.BlockUser(c.Request.Context(), mw.GetProfileID(c), req.ProfileID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "blocked"})
}

// Unblock handles DELETE /api/blocks/:id.
func (h *ModerationHandler) Unblock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.moderation.UnblockUser(c.Request.Context(), mw.GetProfileID(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unblocked"})
}
