package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/feed"
	mw "github.com/nightout-app/server/middleware"
)

// FeedHandler handles feed, reaction and comment endpoints.
type FeedHandler struct {
	feed *feed.Service
}

// NewFeedHandler creates a FeedHandler.
func NewFeedHandler(f *feed.Service) *FeedHandler {
	return &FeedHandler{feed: f}
}

// Feed handles GET /api/feed.
func (h *FeedHandler) Feed(c *gin.Context) {
	limit, offset := pageParams(c, 20)
	nights, err := h.feed.Feed(c.Request.Context(), mw.GetProfileID(c), limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nights": nights})
}

// Trending handles GET /api/feed/trending.
func (h *FeedHandler) Trending(c *gin.Context) {
	limit, _ := pageParams(c, 20)
	nights, err := h.feed.Trending(c.Request.Context(), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nights": nights})
}

// Like handles POST /api/nights/:id/like.
func (h *FeedHandler) Like(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	count, err := h.feed.Like(c.Request.Context(), mw.GetProfileID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"like_count": count})
}

// Unlike handles DELETE /api/nights/:id/like.
func (h *FeedHandler) Unlike(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	count, err := h.feed.Unlike(c.Request.Context(), mw.GetProfileID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"like_count": count})
}

type commentRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}

// AddComment handles POST /api/nights/:id/comments.
func (h *FeedHandler) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, err := h.feed.AddComment(c.Request.Context(), mw.GetProfileID(c), id, req.Text)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// ListComments handles GET /api/nights/:id/comments.
func (h *FeedHandler) ListComments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, offset := pageParams(c, 50)
	comments, err := h.feed.ListComments(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// EditComment handles PATCH /api/comments/:id.
func (h *FeedHandler) EditComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, err := h.feed.EditComment(c.Request.Context(), mw.GetProfileID(c), id, req.Text)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment handles DELETE /api/comments/:id.
func (h *FeedHandler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.feed.DeleteComment(c.Request.Context(), mw.GetProfileID(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
