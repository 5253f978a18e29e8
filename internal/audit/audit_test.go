package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/durian/internal/pubsub"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, pubsub.Message) error { return errors.New("closed") }
func (failingPublisher) Close() error                                  { return nil }

func TestTopicFor(t *testing.T) {
	for _, action := range []string{"sign_in", "sign_up", "social", "sign_out"} {
		topic, ok := TopicFor(action)
		require.True(t, ok, action)
		assert.Equal(t, "auth."+action, topic.Name())
	}
	_, ok := TopicFor("delete_account")
	assert.False(t, ok)
}

func TestSubscriberLogsPublishedEvents(t *testing.T) {
	bus := pubsub.NewWatermillBridge()
	t.Cleanup(func() { _ = bus.Close() })

	out := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSubscriber(bus, logger).Run(ctx) }()

	// Subscriptions are registered asynchronously; publish until one lands.
	require.Eventually(t, func() bool {
		Publish(ctx, bus, "user-ann", Event{Action: "sign_in", Outcome: OutcomeFailure, Email: "ann@example.com", Message: "Invalid email or password"})
		return bytes.Contains([]byte(out.String()), []byte("auth.sign_in"))
	}, 2*time.Second, 20*time.Millisecond)

	logged := out.String()
	assert.Contains(t, logged, "level=WARN")
	assert.Contains(t, logged, "email=ann@example.com")
	assert.Contains(t, logged, `message="Invalid email or password"`)
	assert.Contains(t, logged, "user_id=user-ann")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPublishSwallowsErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		Publish(context.Background(), failingPublisher{}, "", Event{Action: "sign_out", Outcome: OutcomeSuccess})
		Publish(context.Background(), nil, "", Event{Action: "sign_out"})
		Publish(context.Background(), failingPublisher{}, "", Event{Action: "unknown"})
	})
}
