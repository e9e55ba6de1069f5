package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/media"
	mw "github.com/nightout-app/server/middleware"
)

// MediaHandler handles night media endpoints.
type MediaHandler struct {
	media *media.Service
}

// NewMediaHandler creates a MediaHandler.
func NewMediaHandler(m *media.Service) *MediaHandler {
	return &MediaHandler{media: m}
}

// Upload handles POST /api/nights/:id/media (multipart "file" plus
// optional caption/lat/lon/captured_at form fields).
func (h *MediaHandler) Upload(c *gin.Context) {
	nightID, ok := pathID(c, "id")
	if !ok {
		return
	}
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

	in := media.AttachInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Caption:     c.PostForm("caption"),
	}
	if t, err := time.Parse(time.RFC3339, c.PostForm("captured_at")); err == nil {
		in.CapturedAt = t
	}

	m, err := h.media.Attach(c.Request.Context(), mw.GetProfileID(c), nightID, in, src)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"media": m,
		"url":   h.media.URL(m.StoragePath),
	})
}

// List handles GET /api/nights/:id/media.
func (h *MediaHandler) List(c *gin.Context) {
	nightID, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.media.List(c.Request.Context(), nightID)
	if err != nil {
		respondErr(c, err)
		return
	}
	urls := make([]string, len(items))
	for i, m := range items {
		urls[i] = h.media.URL(m.StoragePath)
	}
	c.JSON(http.StatusOK, gin.H{"media": items, "urls": urls})
}

// Delete handles DELETE /api/media/:id.
func (h *MediaHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.media.Remove(c.Request.Context(), mw.GetProfileID(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
