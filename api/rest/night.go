package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/night"
	"github.com/nightout-app/server/social"
)

// NightHandler handles the night lifecycle endpoints.
type NightHandler struct {
	nights *night.Service
	social *social.Service
}

// NewNightHandler creates a NightHandler.
func NewNightHandler(nights *night.Service, soc *social.Service) *NightHandler {
	return &NightHandler{nights: nights, social: soc}
}

type startNightRequest struct {
	Title          string  `json:"title" binding:"max=128"`
	Caption        string  `json:"caption" binding:"max=512"`
	Visibility     string  `json:"visibility"`
	LiveVisibility string  `json:"live_visibility"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
}

// Start handles POST /api/nights.
func (h *NightHandler) Start(c *gin.Context) {
	var req startNightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.nights.Start(c.Request.Context(), mw.GetProfileID(c), night.StartParams{
		Title:          req.Title,
		Caption:        req.Caption,
		Visibility:     req.Visibility,
		LiveVisibility: req.LiveVisibility,
		Lat:            req.Lat,
		Lon:            req.Lon,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"night": n})
}

// End handles POST /api/nights/end.
func (h *NightHandler) End(c *gin.Context) {
	n, err := h.nights.End(c.Request.Context(), mw.GetProfileID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"night":    n,
		"duration": night.FormatDuration(n.DurationS),
		"distance": night.FormatDistance(n.DistanceM),
	})
}

// Active handles GET /api/nights/active.
func (h *NightHandler) Active(c *gin.Context) {
	n, err := h.nights.Active(c.Request.Context(), mw.GetProfileID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	elapsed := int64(time.Since(n.StartedAt).Seconds())
	c.JSON(http.StatusOK, gin.H{
		"night":   n,
		"elapsed": night.FormatDuration(elapsed),
	})
}

// Get handles GET /api/nights/:id.
func (h *NightHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.nights.GetDetail(c.Request.Context(), mw.GetProfileID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListMine handles GET /api/nights.
func (h *NightHandler) ListMine(c *gin.Context) {
	limit, offset := pageParams(c, 20)
	nights, err := h.nights.ListMine(c.Request.Context(), mw.GetProfileID(c), limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nights": nights})
}

// Delete handles DELETE /api/nights/:id.
func (h *NightHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.nights.Delete(c.Request.Context(), mw.GetProfileID(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type addDrinkRequest struct {
	Type       string `json:"type" binding:"required"`
	CustomName string `json:"custom_name" binding:"max=64"`
	Emoji      string `json:"emoji" binding:"max=8"`
}

// AddDrink handles POST /api/nights/drinks.
func (h *NightHandler) AddDrink(c *gin.Context) {
	var req addDrinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.nights.AddDrink(c.Request.Context(), mw.GetProfileID(c), req.Type, req.CustomName, req.Emoji)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"drink": d})
}

type checkInRequest struct {
	Name string  `json:"name" binding:"required,max=128"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// CheckInVenue handles POST /api/nights/venues.
func (h *NightHandler) CheckInVenue(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.nights.CheckInVenue(c.Request.Context(), mw.GetProfileID(c), req.Name, req.Lat, req.Lon)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"venue": v})
}

type moodRequest struct {
	Level int `json:"level" binding:"required"`
}

// SetMood handles POST /api/nights/moods.
func (h *NightHandler) SetMood(c *gin.Context) {
	var req moodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.nights.SetMood(c.Request.Context(), mw.GetProfileID(c), req.Level)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mood": m})
}

type songRequest struct {
	Title  string `json:"title" binding:"required,max=128"`
	Artist string `json:"artist" binding:"max=128"`
}

// AddSong handles POST /api/nights/songs.
func (h *NightHandler) AddSong(c *gin.Context) {
	var req songRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.nights.AddSong(c.Request.Context(), mw.GetProfileID(c), req.Title, req.Artist)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"song": s})
}

type locationRequest struct {
	Lat float64 `json:"lat" binding:"required"`
	Lon float64 `json:"lon" binding:"required"`
}

// RecordLocation handles POST /api/nights/locations.
func (h *NightHandler) RecordLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.nights.RecordLocation(c.Request.Context(), mw.GetProfileID(c), req.Lat, req.Lon); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recorded"})
}

// Route handles GET /api/nights/:id/route.
func (h *NightHandler) Route(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	points, err := h.nights.Route(c.Request.Context(), mw.GetProfileID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

// LiveLocations handles GET /api/nights/live-locations: the latest live
// position of each friend with an active night.
func (h *NightHandler) LiveLocations(c *gin.Context) {
	profileID := mw.GetProfileID(c)
	friendIDs, err := h.social.FriendIDs(c.Request.Context(), profileID)
	if err != nil {
		respondErr(c, err)
		return
	}
	locations, err := h.nights.LiveLocations(c.Request.Context(), friendIDs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}
