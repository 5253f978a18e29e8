package domain

import "errors"

// Sentinel errors for the auth layer. Gateway implementations wrap them in a
// GatewayError so callers can check with errors.Is and still show the
// service's own message.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUnauthenticated    = errors.New("no active session")
	ErrUnknownProvider    = errors.New("unknown social provider")
)

// GatewayError is the structured error an Auth Gateway call resolves to.
// Message is shown to the user verbatim.
type GatewayError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "authentication service error"
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ErrorMessage extracts the user-facing message from a gateway error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Error()
	}
	return err.Error()
}
