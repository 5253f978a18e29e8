package forms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/durian/internal/domain"
	"github.com/nfrund/durian/internal/gateway"
)

type navRecorder struct {
	mu      sync.Mutex
	targets []string
}

func (n *navRecorder) navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
}

func (n *navRecorder) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

func newTestController(t *testing.T, schema Schema, gw domain.AuthGateway) (*Controller, *navRecorder) {
	t.Helper()
	nav := &navRecorder{}
	ctrl := NewController("view-1", schema, gw, Options{Navigator: nav.navigate})
	t.Cleanup(ctrl.Close)
	return ctrl, nav
}

func waitFor(t *testing.T, p *Pending) Snapshot {
	t.Helper()
	require.NotNil(t, p)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := p.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestController_SignInSuccess(t *testing.T) {
	gw := gateway.NewScripted()
	ctrl, nav := newTestController(t, SignIn(), gw)

	require.NoError(t, ctrl.EditAll(Fields{FieldEmail: "a@b.com", FieldPassword: "x"}))
	p, res, err := ctrl.Submit()
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, ActionSignIn, p.Action())

	snap := waitFor(t, p)
	assert.False(t, snap.FormState.Pending)
	assert.Equal(t, PhaseRedirecting, snap.Phase)
	assert.Equal(t, "/", snap.RedirectTo)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "a@b.com", snap.Session.User.Email)

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.Credentials{Email: "a@b.com", Password: "x"}, calls[0].Credentials)
	assert.Equal(t, []string{"/"}, nav.Targets())
}

func TestController_SignUpMismatchSkipsGateway(t *testing.T) {
	gw := gateway.NewScripted()
	ctrl, nav := newTestController(t, SignUp(), gw)

	require.NoError(t, ctrl.EditAll(Fields{
		FieldName:            "Ann",
		FieldEmail:           "a@b.com",
		FieldPassword:        "p1",
		FieldConfirmPassword: "p2",
	}))
	p, res, err := ctrl.Submit()
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.False(t, res.Valid)
	assert.Equal(t, "passwords don't match", res.FieldErrors[FieldConfirmPassword])

	snap := ctrl.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.False(t, snap.FormState.Pending)
	assert.Equal(t, "passwords don't match", snap.FieldError(FieldConfirmPassword))
	assert.Zero(t, gw.CallCount())
	assert.Empty(t, nav.Targets())
}

func TestController_InvalidEmailSkipsGateway(t *testing.T) {
	gw := gateway.NewScripted()
	ctrl, _ := newTestController(t, SignIn(), gw)

	require.NoError(t, ctrl.Edit(FieldEmail, "nope"))
	require.NoError(t, ctrl.Edit(FieldPassword, "x"))
	p, res, err := ctrl.Submit()
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, "invalid email", res.FieldErrors[FieldEmail])
	assert.Zero(t, gw.CallCount())
}

func TestController_SignUpPassesRegistration(t *testing.T) {
	gw := gateway.NewScripted()
	ctrl, nav := newTestController(t, SignUp(), gw)

	require.NoError(t, ctrl.EditAll(Fields{
		FieldName:            "Ann",
		FieldEmail:           "a@b.com",
		FieldPassword:        "p1",
		FieldConfirmPassword: "p1",
	}))
	p, _, err := ctrl.Submit()
	require.NoError(t, err)
	waitFor(t, p)

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.Registration{Name: "Ann", Email: "a@b.com", Password: "p1", CallbackURL: "/"}, calls[0].Registration)
	assert.Equal(t, []string{"/"}, nav.Targets())
}

func TestController_GatewayErrorShowsMessage(t *testing.T) {
	gw := gateway.NewScripted()
	gw.Enqueue(gateway.Result{Err: &domain.GatewayError{Status: 401, Message: "Invalid email or password"}})
	var outcomes []Outcome
	ctrl := NewController("view-1", SignIn(), gw, Options{
		OnOutcome: func(o Outcome) { outcomes = append(outcomes, o) },
	})
	defer ctrl.Close()

	fields := Fields{FieldEmail: "a@b.com", FieldPassword: "bad"}
	require.NoError(t, ctrl.EditAll(fields))
	p, _, err := ctrl.Submit()
	require.NoError(t, err)

	snap := waitFor(t, p)
	assert.Equal(t, "Invalid email or password", snap.FormState.Error)
	assert.False(t, snap.FormState.Pending)
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, fields, snap.FormState.Fields)

	require.Len(t, outcomes, 1)
	assert.Equal(t, ActionSignIn, outcomes[0].Action)
	assert.Equal(t, "a@b.com", outcomes[0].Email)
	assert.Error(t, outcomes[0].Err)

	// The next valid submit clears the banner while pending.
	gw.Hold()
	p, _, err = ctrl.Submit()
	require.NoError(t, err)
	during := ctrl.Snapshot()
	assert.Empty(t, during.FormState.Error)
	assert.True(t, during.FormState.Pending)
	gw.Release()
	waitFor(t, p)
}

func TestController_SecondSubmitWhilePending(t *testing.T) {
	gw := gateway.NewScripted()
	gw.Hold()
	ctrl, nav := newTestController(t, SignIn(), gw)

	require.NoError(t, ctrl.EditAll(Fields{FieldEmail: "a@b.com", FieldPassword: "x"}))
	p, _, err := ctrl.Submit()
	require.NoError(t, err)
	<-gw.Entered()

	_, _, err = ctrl.Submit()
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	_, err = ctrl.SubmitSocial(domain.ProviderGitHub)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	// Inputs stay editable while the call is in flight.
	assert.NoError(t, ctrl.Edit(FieldPassword, "y"))

	gw.Release()
	waitFor(t, p)
	assert.Equal(t, 1, gw.CallCount())
	assert.Equal(t, []string{"/"}, nav.Targets())

	_, _, err = ctrl.Submit()
	assert.ErrorIs(t, err, ErrViewClosed)
	assert.ErrorIs(t, ctrl.Edit(FieldEmail, "c@d.com"), ErrViewClosed)
}

func TestController_StageLeavesInFlightFieldsAlone(t *testing.T) {
	gw := gateway.NewScripted()
	gw.Enqueue(gateway.Result{Err: &domain.GatewayError{Message: "Invalid email or password", Err: domain.ErrInvalidCredentials}})
	gw.Hold()
	ctrl, _ := newTestController(t, SignIn(), gw)

	require.NoError(t, ctrl.Stage(Fields{FieldEmail: "a@b.com", FieldPassword: "x"}))
	p, _, err := ctrl.Submit()
	require.NoError(t, err)
	<-gw.Entered()

	err = ctrl.Stage(Fields{FieldEmail: "other@b.com", FieldPassword: "y"})
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	gw.Release()
	snap := waitFor(t, p)
	assert.Equal(t, "Invalid email or password", snap.FormState.Error)
	assert.Equal(t, "a@b.com", snap.FormState.Fields[FieldEmail])
	assert.Equal(t, "x", snap.FormState.Fields[FieldPassword])

	require.NoError(t, ctrl.Stage(Fields{FieldEmail: "other@b.com"}))
	assert.Equal(t, "other@b.com", ctrl.Snapshot().FormState.Fields[FieldEmail])
}

func TestController_SocialNavigatesToProvider(t *testing.T) {
	gw := gateway.NewScripted()
	gw.Enqueue(gateway.Result{Redirect: "https://github.com/login/oauth/authorize"})
	ctrl, nav := newTestController(t, SignUp(), gw)

	p, err := ctrl.SubmitSocial(domain.ProviderGitHub)
	require.NoError(t, err)
	snap := waitFor(t, p)

	assert.Equal(t, "https://github.com/login/oauth/authorize", snap.RedirectTo)
	assert.Equal(t, []string{"https://github.com/login/oauth/authorize"}, nav.Targets())
	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.ProviderGitHub, calls[0].Provider)
	assert.Equal(t, "/", calls[0].CallbackURL)
}

func TestController_SocialWithoutURLFallsBackToLanding(t *testing.T) {
	gw := gateway.NewScripted()
	gw.Enqueue(gateway.Result{})
	nav := &navRecorder{}
	ctrl := NewController("view-1", SignIn(), gw, Options{LandingPath: "/home", Navigator: nav.navigate})
	defer ctrl.Close()

	p, err := ctrl.SubmitSocial(domain.ProviderGoogle)
	require.NoError(t, err)
	waitFor(t, p)
	assert.Equal(t, []string{"/home"}, nav.Targets())
}

func TestController_SocialRejectsUnknownProvider(t *testing.T) {
	gw := gateway.NewScripted()
	ctrl, _ := newTestController(t, SignIn(), gw)

	_, err := ctrl.SubmitSocial(domain.SocialProvider("myspace"))
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	assert.False(t, ctrl.Snapshot().FormState.Pending)
}

func TestController_CloseDiscardsLateCompletion(t *testing.T) {
	gw := gateway.NewScripted()
	gw.Hold()
	var outcomes int
	nav := &navRecorder{}
	ctrl := NewController("view-1", SignIn(), gw, Options{
		Navigator: nav.navigate,
		OnOutcome: func(Outcome) { outcomes++ },
	})

	require.NoError(t, ctrl.EditAll(Fields{FieldEmail: "a@b.com", FieldPassword: "x"}))
	p, _, err := ctrl.Submit()
	require.NoError(t, err)
	<-gw.Entered()

	ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := p.Wait(ctx)
	assert.ErrorIs(t, err, ErrViewClosed)
	assert.Equal(t, PhaseSubmitting, snap.Phase)
	assert.Empty(t, nav.Targets())
	assert.Zero(t, outcomes)
	assert.True(t, ctrl.Closed())
}

func TestController_EditUnknownField(t *testing.T) {
	ctrl, _ := newTestController(t, SignIn(), gateway.NewScripted())
	err := ctrl.Edit(FieldName, "Ann")
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestPending_WaitHonoursContext(t *testing.T) {
	gw := gateway.NewScripted()
	gw.Hold()
	ctrl, _ := newTestController(t, SignIn(), gw)

	require.NoError(t, ctrl.EditAll(Fields{FieldEmail: "a@b.com", FieldPassword: "x"}))
	p, _, err := ctrl.Submit()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The controller still applies the completion for the next request.
	gw.Release()
	snap := waitFor(t, p)
	assert.Equal(t, PhaseRedirecting, snap.Phase)
}
