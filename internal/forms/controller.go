package forms

import (
	"context"
	"fmt"
	"sync"

	"github.com/nfrund/durian/internal/domain"
	"github.com/nfrund/durian/internal/gateway"
)

// Action names the gateway operation a submission issued.
type Action string

const (
	ActionSignIn Action = "sign_in"
	ActionSignUp Action = "sign_up"
	ActionSocial Action = "social"
)

// Outcome describes a completed gateway call. Err is nil on success.
type Outcome struct {
	ViewID   string
	Kind     Kind
	Action   Action
	Email    string
	Provider domain.SocialProvider
	Target   string
	Session  *domain.Session
	Err      error
}

// Navigator performs the post-success navigation side effect.
type Navigator func(target string)

// Options configures a Controller.
type Options struct {
	// LandingPath is where credential sign-in and sign-up navigate on
	// success. Defaults to "/".
	LandingPath string
	// CallbackURL is handed to the gateway for social sign-in and email
	// verification. Defaults to LandingPath.
	CallbackURL string
	// Navigator is invoked at most once, on the first successful completion.
	Navigator Navigator
	// OnOutcome observes every applied gateway completion.
	OnOutcome func(Outcome)
}

// Pending is the future of one in-flight gateway call.
type Pending struct {
	action Action
	done   chan struct{}
	snap   Snapshot
	err    error
}

func newPending(action Action) *Pending {
	return &Pending{action: action, done: make(chan struct{})}
}

// Action is the operation this call performs.
func (p *Pending) Action() Action { return p.action }

// Done is closed once the call has been applied or discarded.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the call completes or ctx ends. On completion it returns
// the controller state right after the outcome was applied. If the view was
// closed first the outcome is discarded and ErrViewClosed is returned.
func (p *Pending) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-p.done:
		return p.snap, p.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (p *Pending) resolve(snap Snapshot, err error) {
	p.snap = snap
	p.err = err
	close(p.done)
}

// Controller owns the state of one mounted auth form. It is safe for
// concurrent use.
type Controller struct {
	id     string
	schema Schema
	gw     domain.AuthGateway
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       FormState
	fieldErrors map[string]string
	phase       Phase
	redirectTo  string
	session     *domain.Session
	inflight    *Pending
	navigated   bool
	closed      bool
}

// NewController mounts a view with empty fields.
func NewController(id string, schema Schema, gw domain.AuthGateway, opts Options) *Controller {
	if opts.LandingPath == "" {
		opts.LandingPath = "/"
	}
	if opts.CallbackURL == "" {
		opts.CallbackURL = opts.LandingPath
	}
	ctx, cancel := context.WithCancel(context.Background())
	fields := Fields{}
	for _, name := range schema.FieldNames() {
		fields[name] = ""
	}
	return &Controller{
		id:          id,
		schema:      schema,
		gw:          gw,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		state:       FormState{Fields: fields},
		fieldErrors: map[string]string{},
	}
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) Kind() Kind { return c.schema.Kind() }

func (c *Controller) acceptsInput() error {
	if c.closed || c.phase == PhaseRedirecting {
		return ErrViewClosed
	}
	return nil
}

func (c *Controller) knownField(name string) bool {
	_, ok := c.state.Fields[name]
	return ok
}

// Edit assigns a single field.
func (c *Controller) Edit(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptsInput(); err != nil {
		return err
	}
	if !c.knownField(name) {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	c.state.Fields[name] = value
	return nil
}

// EditAll assigns every known field present in values and ignores the rest.
func (c *Controller) EditAll(values Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptsInput(); err != nil {
		return err
	}
	for name, value := range values {
		if c.knownField(name) {
			c.state.Fields[name] = value
		}
	}
	return nil
}

// Stage is EditAll for a submission that is about to follow. While a call
// is in flight it returns ErrSubmitInFlight and leaves the fields as they
// were sent, so a rejected submit cannot overwrite them.
func (c *Controller) Stage(values Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptsInput(); err != nil {
		return err
	}
	if c.state.Pending {
		return ErrSubmitInFlight
	}
	for name, value := range values {
		if c.knownField(name) {
			c.state.Fields[name] = value
		}
	}
	return nil
}

// Submit validates the current fields and, when they are valid, issues the
// form's gateway call. An invalid form returns a nil Pending and the failed
// ValidationResult without contacting the gateway.
func (c *Controller) Submit() (*Pending, ValidationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptsInput(); err != nil {
		return nil, ValidationResult{}, err
	}
	if c.state.Pending {
		return nil, ValidationResult{}, ErrSubmitInFlight
	}

	result := c.schema.Validate(c.state.Fields)
	c.fieldErrors = result.FieldErrors
	if !result.Valid {
		return nil, result, nil
	}

	var (
		action Action
		call   gateway.Call
		email  = c.state.Fields[FieldEmail]
	)
	switch c.schema.Kind() {
	case KindSignUp:
		action = ActionSignUp
		call = gateway.SignUp(c.gw, domain.Registration{
			Name:        c.state.Fields[FieldName],
			Email:       email,
			Password:    c.state.Fields[FieldPassword],
			CallbackURL: c.opts.CallbackURL,
		})
	default:
		action = ActionSignIn
		call = gateway.SignIn(c.gw, domain.Credentials{
			Email:    email,
			Password: c.state.Fields[FieldPassword],
		})
	}
	return c.startLocked(action, call, Outcome{Email: email}), result, nil
}

// SubmitSocial starts a social sign-in. Validation is skipped. It shares the
// pending flag with Submit.
func (c *Controller) SubmitSocial(provider domain.SocialProvider) (*Pending, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptsInput(); err != nil {
		return nil, err
	}
	if c.state.Pending {
		return nil, ErrSubmitInFlight
	}
	call := gateway.Social(c.gw, provider, c.opts.CallbackURL)
	return c.startLocked(ActionSocial, call, Outcome{Provider: provider}), nil
}

func (c *Controller) startLocked(action Action, call gateway.Call, base Outcome) *Pending {
	c.state.Error = ""
	c.state.Pending = true
	c.phase = PhaseSubmitting

	p := newPending(action)
	c.inflight = p
	results := gateway.Go(c.ctx, call)
	go func() {
		c.complete(p, base, <-results)
	}()
	return p
}

func (c *Controller) complete(p *Pending, outcome Outcome, res gateway.Result) {
	c.mu.Lock()
	if c.closed || c.inflight != p {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		p.resolve(snap, ErrViewClosed)
		return
	}

	c.inflight = nil
	c.state.Pending = false
	outcome.ViewID = c.id
	outcome.Kind = c.schema.Kind()
	outcome.Action = p.action

	var navigate string
	if res.Err != nil {
		c.state.Error = domain.ErrorMessage(res.Err)
		c.phase = PhaseIdle
		outcome.Err = res.Err
	} else {
		target := c.opts.LandingPath
		if p.action == ActionSocial && res.Redirect != "" {
			target = res.Redirect
		}
		c.phase = PhaseRedirecting
		c.redirectTo = target
		c.session = res.Session
		outcome.Target = target
		outcome.Session = res.Session
		if !c.navigated {
			c.navigated = true
			navigate = target
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if navigate != "" && c.opts.Navigator != nil {
		c.opts.Navigator(navigate)
	}
	if c.opts.OnOutcome != nil {
		c.opts.OnOutcome(outcome)
	}
	p.resolve(snap, nil)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	fieldErrors := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		fieldErrors[k] = v
	}
	return Snapshot{
		ViewID: c.id,
		Kind:   c.schema.Kind(),
		Phase:  c.phase,
		FormState: FormState{
			Fields:  c.state.Fields.Clone(),
			Error:   c.state.Error,
			Pending: c.state.Pending,
		},
		FieldErrors: fieldErrors,
		RedirectTo:  c.redirectTo,
		Session:     c.session,
	}
}

// Close unmounts the view. An in-flight call is cancelled and its late
// completion is discarded. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
