package gateway

import (
	"context"
	"sync"

	"github.com/nfrund/durian/internal/domain"
)

// RecordedCall is one invocation seen by a Scripted gateway.
type RecordedCall struct {
	Method       string
	Credentials  domain.Credentials
	Registration domain.Registration
	Provider     domain.SocialProvider
	CallbackURL  string
	Token        string
}

// Scripted is a programmable AuthGateway for tests. Outcomes queued with
// Enqueue are consumed in order; with the queue empty every call succeeds
// with a session for the submitted email.
type Scripted struct {
	mu      sync.Mutex
	calls   []RecordedCall
	queue   []Result
	gate    chan struct{}
	entered chan struct{}
}

func NewScripted() *Scripted {
	return &Scripted{entered: make(chan struct{}, 64)}
}

// Enqueue appends outcomes for upcoming calls.
func (s *Scripted) Enqueue(results ...Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, results...)
}

// Hold makes subsequent calls block until Release or until their context
// is cancelled.
func (s *Scripted) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate == nil {
		s.gate = make(chan struct{})
	}
}

// Release unblocks held calls.
func (s *Scripted) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Entered signals once per call after it has been recorded.
func (s *Scripted) Entered() <-chan struct{} { return s.entered }

// Calls returns a copy of the recorded calls.
func (s *Scripted) Calls() []RecordedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many calls were made.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *Scripted) record(ctx context.Context, call RecordedCall, fallback Result) (Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	gate := s.gate
	res := fallback
	if len(s.queue) > 0 {
		res = s.queue[0]
		s.queue = s.queue[1:]
	}
	s.mu.Unlock()

	select {
	case s.entered <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return res, nil
}

func defaultSession(email string) Result {
	return Result{Session: &domain.Session{
		Token: "token-" + email,
		User:  domain.User{ID: "user-" + email, Email: email},
	}}
}

func (s *Scripted) SignInWithCredentials(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	res, err := s.record(ctx, RecordedCall{Method: "SignInWithCredentials", Credentials: creds}, defaultSession(creds.Email))
	if err != nil {
		return nil, err
	}
	return res.Session, res.Err
}

func (s *Scripted) SignUpWithCredentials(ctx context.Context, reg domain.Registration) (*domain.Session, error) {
	fallback := defaultSession(reg.Email)
	fallback.Session.User.Name = reg.Name
	res, err := s.record(ctx, RecordedCall{Method: "SignUpWithCredentials", Registration: reg}, fallback)
	if err != nil {
		return nil, err
	}
	return res.Session, res.Err
}

func (s *Scripted) SignInWithSocialProvider(ctx context.Context, provider domain.SocialProvider, callbackURL string) (*domain.SocialRedirect, error) {
	fallback := Result{Redirect: "https://auth.example.test/" + string(provider)}
	res, err := s.record(ctx, RecordedCall{Method: "SignInWithSocialProvider", Provider: provider, CallbackURL: callbackURL}, fallback)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return &domain.SocialRedirect{URL: res.Redirect}, nil
}

func (s *Scripted) SignOut(ctx context.Context, token string) error {
	res, err := s.record(ctx, RecordedCall{Method: "SignOut", Token: token}, Result{})
	if err != nil {
		return err
	}
	return res.Err
}

func (s *Scripted) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	fallback := Result{Session: &domain.Session{Token: token, User: domain.User{ID: "user", Email: "user@example.com"}}}
	res, err := s.record(ctx, RecordedCall{Method: "CurrentSession", Token: token}, fallback)
	if err != nil {
		return nil, err
	}
	return res.Session, res.Err
}
