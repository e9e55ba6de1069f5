package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvMessage(t *testing.T, ch <-chan *LocalMessage) *LocalMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPubSub_FanOut(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch1, cancel1, err := ps.Subscribe(ctx, "topic")
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := ps.Subscribe(ctx, "topic")
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, ps.Publish(ctx, "topic", "hello"))

	for _, ch := range []<-chan *LocalMessage{ch1, ch2} {
		msg := recvMessage(t, ch)
		assert.Equal(t, "topic", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	}
}

func TestPubSub_MultiChannelSubscribe(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "a", "b")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "a", "1"))
	require.NoError(t, ps.Publish(ctx, "b", "2"))
	require.NoError(t, ps.Publish(ctx, "c", "ignored"))

	seen := map[string]string{}
	for i := 0; i < 2; i++ {
		msg := recvMessage(t, ch)
		seen[msg.Channel] = msg.Payload
	}
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, seen)
}

func TestPubSub_CancelClosesChannel(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "topic")
	require.NoError(t, err)
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel reaches no one and does not panic.
	require.NoError(t, ps.Publish(ctx, "topic", "late"))

	// Cancel twice is safe.
	cancel()
}

func TestPubSub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "topic")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "topic", "kept"))
	done := make(chan struct{})
	go func() {
		_ = ps.Publish(ctx, "topic", "dropped")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	msg := recvMessage(t, ch)
	assert.Equal(t, "kept", msg.Payload)
}
