// Package forms holds the auth form state machine: the validation schemas,
// the per-view Controller and the store of mounted views.
package forms

import (
	"errors"
	"maps"

	"github.com/nfrund/durian/internal/domain"
)

// Field names as posted by the forms.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

var (
	ErrSubmitInFlight = errors.New("forms: a submission is already in flight")
	ErrViewClosed     = errors.New("forms: view is closed")
	ErrUnknownField   = errors.New("forms: unknown field")
)

// Kind identifies which form a controller drives.
type Kind string

const (
	KindSignIn Kind = "sign-in"
	KindSignUp Kind = "sign-up"
)

// Phase is the controller lifecycle position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseRedirecting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Fields maps field names to their current values.
type Fields map[string]string

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// ValidationResult is the outcome of running a Schema over Fields.
type ValidationResult struct {
	Valid       bool
	FieldErrors map[string]string
}

// FormState is the mutable part of a mounted view.
type FormState struct {
	Fields  Fields
	Error   string
	Pending bool
}

// Snapshot is an immutable copy of a controller's state, handed to the
// renderer.
type Snapshot struct {
	ViewID      string
	Kind        Kind
	Phase       Phase
	FormState   FormState
	FieldErrors map[string]string
	RedirectTo  string
	Session     *domain.Session
}

// Value returns the current value of field.
func (s Snapshot) Value(field string) string { return s.FormState.Fields[field] }

// FieldError returns the validation message for field, if any.
func (s Snapshot) FieldError(field string) string { return s.FieldErrors[field] }
