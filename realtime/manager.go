package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nightout-app/server/cache"
	"go.uber.org/zap"
)

// Handler receives decoded change events.
type Handler func(Event)

type subscription struct {
	cancel func()
	done   chan struct{}
}

// Manager owns a small set of live subscriptions keyed by channel.
// Subscribing an already-subscribed key replaces the old subscription
// instead of duplicating it; UnsubscribeAll tears everything down and is
// expected on consumer teardown so channels never leak.
type Manager struct {
	mu     sync.Mutex
	ps     cache.PubSub
	subs   map[string]*subscription
	logger *zap.Logger
}

// NewManager creates a Manager over the given pub/sub transport.
func NewManager(ps cache.PubSub, logger *zap.Logger) *Manager {
	return &Manager{
		ps:     ps,
		subs:   make(map[string]*subscription),
		logger: logger,
	}
}

// SubscribeComments delivers comment-change events for a night.
func (m *Manager) SubscribeComments(ctx context.Context, nightID int64, onEvent Handler) error {
	return m.subscribe(ctx, CommentsChannel(nightID), onEvent)
}

// SubscribeReactions delivers reaction-change events for a night.
func (m *Manager) SubscribeReactions(ctx context.Context, nightID int64, onEvent Handler) error {
	return m.subscribe(ctx, ReactionsChannel(nightID), onEvent)
}

// SubscribeFriendLocations delivers live activity events for one friend.
func (m *Manager) SubscribeFriendLocations(ctx context.Context, profileID int64, onEvent Handler) error {
	return m.subscribe(ctx, LiveChannel(profileID), onEvent)
}

func (m *Manager) subscribe(ctx context.Context, channel string, onEvent Handler) error {
	msgCh, cancel, err := m.ps.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if old, ok := m.subs[channel]; ok {
		old.cancel()
		<-old.done
	}
	m.subs[channel] = sub
	m.mu.Unlock()

	go func() {
		defer close(sub.done)
		for msg := range msgCh {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				m.logger.Warn("bad realtime payload",
					zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			onEvent(ev)
		}
	}()
	return nil
}

// Unsubscribe tears down one channel's subscription if present.
func (m *Manager) Unsubscribe(channel string) {
	m.mu.Lock()
	sub, ok := m.subs[channel]
	if ok {
		delete(m.subs, channel)
	}
	m.mu.Unlock()
	if ok {
		sub.cancel()
		<-sub.done
	}
}

// UnsubscribeAll tears down every open subscription.
func (m *Manager) UnsubscribeAll() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]*subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		<-sub.done
	}
}

// Open returns the number of open subscriptions.
func (m *Manager) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
