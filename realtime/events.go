package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nightout-app/server/cache"
	"go.uber.org/zap"
)

// Event kinds.
const (
	KindComment  = "comment"
	KindReaction = "reaction"
	KindLive     = "live_update"
	KindLocation = "location"
)

// Event is a change notification. It is a "something changed, refetch"
// signal, not a delta: consumers re-query the affected list on receipt.
type Event struct {
	Kind      string `json:"kind"`
	NightID   int64  `json:"night_id,omitempty"`
	ProfileID int64  `json:"profile_id,omitempty"`
}

// Channel names. One logical channel per night for comments and reactions,
// one per profile for live activity (updates + locations).
func CommentsChannel(nightID int64) string  { return fmt.Sprintf("night:%d:comments", nightID) }
func ReactionsChannel(nightID int64) string { return fmt.Sprintf("night:%d:reactions", nightID) }
func LiveChannel(profileID int64) string    { return fmt.Sprintf("live:%d", profileID) }

// Publisher fans change notifications out through the pub/sub transport.
// Publishes are best-effort; a failed publish is logged, never surfaced to
// the write path that triggered it.
type Publisher struct {
	ps     cache.PubSub
	logger *zap.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(ps cache.PubSub, logger *zap.Logger) *Publisher {
	return &Publisher{ps: ps, logger: logger}
}

func (p *Publisher) publish(ctx context.Context, channel string, ev Event) {
	payload, _ := json.Marshal(ev)
	if err := p.ps.Publish(ctx, channel, string(payload)); err != nil {
		p.logger.Warn("realtime publish failed",
			zap.String("channel", channel), zap.Error(err))
	}
}

// CommentChanged signals that a night's comment list changed.
func (p *Publisher) CommentChanged(ctx context.Context, nightID int64) {
	p.publish(ctx, CommentsChannel(nightID), Event{Kind: KindComment, NightID: nightID})
}

// ReactionChanged signals that a night's reactions changed.
func (p *Publisher) ReactionChanged(ctx context.Context, nightID int64) {
	p.publish(ctx, ReactionsChannel(nightID), Event{Kind: KindReaction, NightID: nightID})
}

// LiveUpdated signals new live activity on a profile's active night.
func (p *Publisher) LiveUpdated(ctx context.Context, profileID, nightID int64) {
	p.publish(ctx, LiveChannel(profileID), Event{Kind: KindLive, NightID: nightID, ProfileID: profileID})
}

// LocationChanged signals that a profile's live location moved.
func (p *Publisher) LocationChanged(ctx context.Context, profileID, nightID int64) {
	p.publish(ctx, LiveChannel(profileID), Event{Kind: KindLocation, NightID: nightID, ProfileID: profileID})
}
