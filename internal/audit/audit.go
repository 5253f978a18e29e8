// Package audit records the outcome of every auth gateway call as an event
// on the in-process bus and logs what it receives.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/nfrund/durian/internal/pubsub"
)

// Outcome values carried by Event.Outcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ActionSignOut is the action of a sign-out. The other actions are the form
// controller's action names.
const ActionSignOut = "sign_out"

// Event is the payload published for each auth action.
type Event struct {
	Action   string    `json:"action"`
	Outcome  string    `json:"outcome"`
	Email    string    `json:"email,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

var (
	SignIn  = pubsub.NewEvent[Event]("auth.sign_in")
	SignUp  = pubsub.NewEvent[Event]("auth.sign_up")
	Social  = pubsub.NewEvent[Event]("auth.social")
	SignOut = pubsub.NewEvent[Event]("auth.sign_out")
)

// Topics lists every audited event.
var Topics = []pubsub.Event[Event]{SignIn, SignUp, Social, SignOut}

// TopicFor maps an action name onto its event. ok is false for unknown actions.
func TopicFor(action string) (pubsub.Event[Event], bool) {
	for _, topic := range Topics {
		if topic.Name() == "auth."+action {
			return topic, true
		}
	}
	return pubsub.Event[Event]{}, false
}

// Publish sends ev on the topic for its action. Failures are logged and
// swallowed so auditing never changes a response.
func Publish(ctx context.Context, p pubsub.Publisher, userID string, ev Event) {
	if p == nil {
		return
	}
	topic, ok := TopicFor(ev.Action)
	if !ok {
		slog.WarnContext(ctx, "Audit event for unknown action dropped", "action", ev.Action)
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := pubsub.Publish(ctx, p, topic, userID, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish audit event", "topic", topic.Name(), "error", err)
	}
}
