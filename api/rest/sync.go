package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/mirror"
	"github.com/nightout-app/server/model"
)

// SyncHandler serves the full-sync snapshot a client mirror hydrates from.
type SyncHandler struct {
	remote *mirror.SchemaRemote
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(remote *mirror.SchemaRemote) *SyncHandler {
	return &SyncHandler{remote: remote}
}

// fullSyncResponse bundles everything a mirror needs in one round trip.
// Tables that fail to load are named in "failed"; the rest still ship.
type fullSyncResponse struct {
	Profile     *model.Profile     `json:"profile,omitempty"`
	Friends     []model.Profile    `json:"friends,omitempty"`
	Nights      []model.Night      `json:"nights,omitempty"`
	Friendships []model.Friendship `json:"friendships,omitempty"`
	Children    *mirror.ChildRows  `json:"children,omitempty"`
	Failed      map[string]string  `json:"failed,omitempty"`
}

// Full handles GET /api/sync/full.
func (h *SyncHandler) Full(c *gin.Context) {
	ctx := c.Request.Context()
	profileID := mw.GetProfileID(c)
	resp := fullSyncResponse{Failed: map[string]string{}}

	if p, err := h.remote.Profile(ctx, profileID); err != nil {
		resp.Failed["profile"] = err.Error()
	} else {
		resp.Profile = p
	}
	if friends, err := h.remote.FriendProfiles(ctx, profileID); err != nil {
		resp.Failed["friend_profiles"] = err.Error()
	} else {
		resp.Friends = friends
	}

	var nightIDs []int64
	if nights, err := h.remote.Nights(ctx, profileID); err != nil {
		resp.Failed["nights"] = err.Error()
	} else {
		resp.Nights = nights
	}
	if nights, err := h.remote.FriendNights(ctx, profileID); err != nil {
		resp.Failed["friend_nights"] = err.Error()
	} else {
		resp.Nights = append(resp.Nights, nights...)
	}
	for _, n := range resp.Nights {
		nightIDs = append(nightIDs, n.ID)
	}

	if fs, err := h.remote.Friendships(ctx, profileID); err != nil {
		resp.Failed["friendships"] = err.Error()
	} else {
		resp.Friendships = fs
	}

	if len(nightIDs) > 0 {
		if children, err := h.remote.NightChildren(ctx, nightIDs); err != nil {
			resp.Failed["night_children"] = err.Error()
		} else {
			resp.Children = children
		}
	}

	if len(resp.Failed) == 0 {
		resp.Failed = nil
	}
	c.JSON(http.StatusOK, resp)
}
