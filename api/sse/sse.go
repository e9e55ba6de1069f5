package sse

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/realtime"
	"github.com/nightout-app/server/session"
	"github.com/nightout-app/server/social"
	"go.uber.org/zap"
)

// Handler streams realtime events over SSE. One connection carries every
// channel the viewer cares about: their friends' live channels plus any
// nights named in ?nights= (comments and reactions).
type Handler struct {
	pubsub   cache.PubSub
	c        cache.Cache
	sec      config.SecurityConfig
	social   *social.Service
	presence *session.Manager
	cfg      config.RealtimeConfig
	logger   *zap.Logger
}

// NewHandler creates an SSE Handler.
func NewHandler(pubsub cache.PubSub, c cache.Cache, sec config.SecurityConfig, soc *social.Service, presence *session.Manager, cfg config.RealtimeConfig, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, c: c, sec: sec, social: soc, presence: presence, cfg: cfg, logger: logger}
}

// ServeSSE handles GET /sse?token=<jwt>[&nights=1,2,3].
// EventSource cannot set headers, so the token rides in the query string.
// The connection counts as presence: the profile is online while the
// stream is open, heartbeated by the keepalive ticker.
func (h *Handler) ServeSSE(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if claims.Guest {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "requires sign-in"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	exists, err := h.c.Exists(ctx, "session:"+tokenStr)
	if err != nil || !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	channels, err := h.viewerChannels(c, claims.ProfileID)
	if err != nil {
		h.logger.Error("sse channel resolution failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, channels...)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	h.presence.Register(claims.ProfileID)
	defer h.presence.Unregister(claims.ProfileID)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	keepalive := time.Duration(h.cfg.KeepaliveS) * time.Second
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: change\ndata: %s\n\n", msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			h.presence.Heartbeat(claims.ProfileID)
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

// viewerChannels resolves everything the viewer subscribes to: their own
// live channel, each friend's live channel, and comments/reactions for
// the nights listed in ?nights=.
func (h *Handler) viewerChannels(c *gin.Context, profileID int64) ([]string, error) {
	channels := []string{realtime.LiveChannel(profileID)}

	friendIDs, err := h.social.FriendIDs(c.Request.Context(), profileID)
	if err != nil {
		return nil, err
	}
	for _, id := range friendIDs {
		channels = append(channels, realtime.LiveChannel(id))
	}

	if raw := c.Query("nights"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			nightID, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || nightID <= 0 {
				continue
			}
			channels = append(channels,
				realtime.CommentsChannel(nightID),
				realtime.ReactionsChannel(nightID))
		}
	}
	return channels, nil
}
