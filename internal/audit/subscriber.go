package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/durian/internal/pubsub"
)

// Subscriber logs audit events as they arrive.
type Subscriber struct {
	sub    pubsub.Subscriber
	logger *slog.Logger
}

func NewSubscriber(sub pubsub.Subscriber, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{sub: sub, logger: logger.With("component", "audit")}
}

// Run subscribes to every audit topic and blocks until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	for _, topic := range Topics {
		if err := s.sub.Subscribe(ctx, topic.Name(), s.handle(topic)); err != nil {
			return fmt.Errorf("audit subscribe: %w", err)
		}
	}
	<-ctx.Done()
	return nil
}

func (s *Subscriber) handle(topic pubsub.Event[Event]) pubsub.Handler {
	return func(ctx context.Context, msg pubsub.Message) error {
		ev, err := topic.Decode(msg)
		if err != nil {
			return err
		}
		level := slog.LevelInfo
		if ev.Outcome == OutcomeFailure {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "Auth event",
			"topic", msg.Topic,
			"user_id", msg.UserID,
			"action", ev.Action,
			"outcome", ev.Outcome,
			"email", ev.Email,
			"provider", ev.Provider,
			"message", ev.Message,
			"at", ev.At,
		)
		return nil
	}
}
