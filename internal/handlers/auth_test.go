package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/durian/internal/audit"
	"github.com/nfrund/durian/internal/domain"
	"github.com/nfrund/durian/internal/forms"
	"github.com/nfrund/durian/internal/gateway"
	"github.com/nfrund/durian/internal/handlers"
	"github.com/nfrund/durian/internal/pubsub"
	"github.com/nfrund/durian/internal/rendering"
	authsession "github.com/nfrund/durian/internal/session"
	"github.com/nfrund/durian/internal/testutils"
	"github.com/nfrund/durian/internal/view"
)

const testSessionSecret = "a-very-secret-key-for-testing-!"

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []pubsub.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Topic)
	}
	return out
}

type authTest struct {
	e      *echo.Echo
	gw     *gateway.Scripted
	views  *forms.Views
	events *recordingPublisher
}

func setupAuthTest(t *testing.T) *authTest {
	t.Helper()
	e := echo.New()
	e.Validator = handlers.NewValidator()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(testSessionSecret))))

	gw := gateway.NewScripted()
	views := forms.NewViews(forms.ViewsOptions{IdleTTL: time.Minute, MaxViews: 50})
	t.Cleanup(views.CloseAll)
	events := &recordingPublisher{}

	h := handlers.NewAuthHandler(views, gw, authsession.NewProvider(gw, authsession.Options{}), rendering.NewUniversalRenderer(), events, handlers.AuthOptions{
		LandingPath: "/",
		SignInPath:  "/sign-in",
		CallbackURL: "http://localhost:8080/",
	})
	e.GET("/sign-in", h.SignInGet)
	e.POST("/sign-in", h.SignInPost)
	e.GET("/sign-up", h.SignUpGet)
	e.POST("/sign-up", h.SignUpPost)
	e.POST("/sign-in/social", h.SocialPost(forms.KindSignIn))
	e.POST("/sign-up/social", h.SocialPost(forms.KindSignUp))
	e.POST("/sign-out", h.SignOutPost)
	e.GET(gateway.CallbackPath, h.SocialCallbackGet)

	return &authTest{e: e, gw: gw, views: views, events: events}
}

type reqOpt func(*http.Request)

func htmx(r *http.Request) { r.Header.Set("HX-Request", "true") }

func withCookies(cookies []*http.Cookie) reqOpt {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func (a *authTest) post(path string, form url.Values, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *authTest) get(path string, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func viewIDFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	doc := testutils.ParseHTML(t, rec.Body.Bytes())
	id, ok := doc.Find(`input[name="` + view.ViewIDField + `"]`).Attr("value")
	require.True(t, ok, "rendered form has no view id")
	return id
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignInGet_MountsView(t *testing.T) {
	a := setupAuthTest(t)

	rec := a.get("/sign-in")
	assert.Equal(t, http.StatusOK, rec.Code)

	id := viewIDFrom(t, rec)
	ctrl, ok := a.views.Get(id)
	require.True(t, ok)
	assert.Equal(t, forms.KindSignIn, ctrl.Kind())
}

func TestSignInPost_Success(t *testing.T) {
	a := setupAuthTest(t)
	id := viewIDFrom(t, a.get("/sign-in"))

	rec := a.post("/sign-in", url.Values{"view_id": {id}, "email": {"a@b.com"}, "password": {"x"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	require.Equal(t, 1, a.gw.CallCount())
	assert.Equal(t, domain.Credentials{Email: "a@b.com", Password: "x"}, a.gw.Calls()[0].Credentials)
	assert.NotNil(t, cookieNamed(rec.Result().Cookies(), authsession.CookieName), "session cookie should be set")

	_, mounted := a.views.Get(id)
	assert.False(t, mounted, "view should be unmounted after redirect")
	assert.Equal(t, []string{"auth.sign_in"}, a.events.Topics())
}

func TestSignInPost_HTMXSuccessUsesHXRedirect(t *testing.T) {
	a := setupAuthTest(t)

	rec := a.post("/sign-in", url.Values{"email": {"a@b.com"}, "password": {"x"}}, htmx)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
}

func TestSignInPost_ValidationError(t *testing.T) {
	a := setupAuthTest(t)

	t.Run("full page gets 422", func(t *testing.T) {
		rec := a.post("/sign-in", url.Values{"email": {"not-an-email"}, "password": {"x"}})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		doc := testutils.ParseHTML(t, rec.Body.Bytes())
		assert.Equal(t, "invalid email", strings.TrimSpace(doc.Find("#field-email-error").Text()))
		assert.Equal(t, "not-an-email", doc.Find(`input[name="email"]`).AttrOr("value", ""))
		assert.Equal(t, 1, doc.Find("title").Length())
	})

	t.Run("htmx gets the fragment with 200", func(t *testing.T) {
		rec := a.post("/sign-in", url.Values{"email": {"a@b.com"}}, htmx)

		assert.Equal(t, http.StatusOK, rec.Code)
		doc := testutils.ParseHTML(t, rec.Body.Bytes())
		assert.Equal(t, 0, doc.Find("title").Length())
		assert.Equal(t, "a password is required", strings.TrimSpace(doc.Find("#field-password-error").Text()))
	})

	assert.Zero(t, a.gw.CallCount())
	assert.Empty(t, a.events.Topics())
}

func TestSignUpPost_PasswordMismatch(t *testing.T) {
	a := setupAuthTest(t)

	rec := a.post("/sign-up", url.Values{
		"name":            {"Ann"},
		"email":           {"ann@example.com"},
		"password":        {"p1"},
		"confirmPassword": {"p2"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	doc := testutils.ParseHTML(t, rec.Body.Bytes())
	assert.Equal(t, "passwords don't match", strings.TrimSpace(doc.Find("#field-confirmPassword-error").Text()))
	assert.Zero(t, a.gw.CallCount())
}

func TestSignUpPost_Success(t *testing.T) {
	a := setupAuthTest(t)

	rec := a.post("/sign-up", url.Values{
		"name":            {"Ann"},
		"email":           {"ann@example.com"},
		"password":        {"secret"},
		"confirmPassword": {"secret"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, 1, a.gw.CallCount())
	reg := a.gw.Calls()[0].Registration
	assert.Equal(t, "Ann", reg.Name)
	assert.Equal(t, "http://localhost:8080/", reg.CallbackURL)
}

func TestSignUpPost_SuccessWithoutToken(t *testing.T) {
	a := setupAuthTest(t)
	id := viewIDFrom(t, a.get("/sign-up"))
	// Accounts awaiting email verification come back without a token.
	a.gw.Enqueue(gateway.Result{Session: &domain.Session{User: domain.User{ID: "u1", Email: "ann@example.com"}}})

	rec := a.post("/sign-up", url.Values{
		"view_id":         {id},
		"name":            {"Ann"},
		"email":           {"ann@example.com"},
		"password":        {"secret"},
		"confirmPassword": {"secret"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.Nil(t, cookieNamed(rec.Result().Cookies(), authsession.CookieName), "no token, no session cookie")
	_, mounted := a.views.Get(id)
	assert.False(t, mounted, "view should be unmounted after redirect")
	assert.Equal(t, []string{"auth.sign_up"}, a.events.Topics())
}

func TestSignInPost_GatewayError(t *testing.T) {
	a := setupAuthTest(t)
	failure := gateway.Result{Err: &domain.GatewayError{Status: http.StatusUnauthorized, Message: "Invalid email or password", Err: domain.ErrInvalidCredentials}}

	t.Run("full page gets 401 and the banner", func(t *testing.T) {
		a.gw.Enqueue(failure)
		rec := a.post("/sign-in", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		doc := testutils.ParseHTML(t, rec.Body.Bytes())
		assert.Equal(t, "Invalid email or password", strings.TrimSpace(doc.Find(".alert-error .alert-title").Text()))
		assert.Equal(t, "a@b.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
		assert.Nil(t, cookieNamed(rec.Result().Cookies(), authsession.CookieName))
	})

	t.Run("htmx keeps 200", func(t *testing.T) {
		a.gw.Enqueue(failure)
		rec := a.post("/sign-in", url.Values{"email": {"a@b.com"}, "password": {"wrong"}}, htmx)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid email or password")
	})
}

func TestSignInPost_StaleViewStillSubmits(t *testing.T) {
	a := setupAuthTest(t)

	rec := a.post("/sign-in", url.Values{"view_id": {"gone"}, "email": {"a@b.com"}, "password": {"x"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, a.gw.CallCount())
}

func TestSignInPost_SecondSubmitWhilePending(t *testing.T) {
	a := setupAuthTest(t)
	id := viewIDFrom(t, a.get("/sign-in"))
	form := url.Values{"view_id": {id}, "email": {"a@b.com"}, "password": {"x"}}

	a.gw.Hold()
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- a.post("/sign-in", form) }()

	select {
	case <-a.gw.Entered():
	case <-time.After(2 * time.Second):
		t.Fatal("first submit never reached the gateway")
	}

	rec := a.post("/sign-in", form)
	assert.Equal(t, http.StatusConflict, rec.Code)
	doc := testutils.ParseHTML(t, rec.Body.Bytes())
	_, disabled := doc.Find(`button[type="submit"].btn-primary`).Attr("disabled")
	assert.True(t, disabled)

	a.gw.Release()
	select {
	case res := <-first:
		assert.Equal(t, http.StatusSeeOther, res.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("first submit did not finish")
	}
	assert.Equal(t, 1, a.gw.CallCount())
}

func TestSignInPost_RejectedSubmitKeepsInFlightFields(t *testing.T) {
	a := setupAuthTest(t)
	id := viewIDFrom(t, a.get("/sign-in"))

	a.gw.Enqueue(gateway.Result{Err: &domain.GatewayError{Status: http.StatusUnauthorized, Message: "Invalid email or password", Err: domain.ErrInvalidCredentials}})
	a.gw.Hold()
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- a.post("/sign-in", url.Values{"view_id": {id}, "email": {"a@b.com"}, "password": {"x"}})
	}()

	select {
	case <-a.gw.Entered():
	case <-time.After(2 * time.Second):
		t.Fatal("first submit never reached the gateway")
	}

	rejected := a.post("/sign-in", url.Values{"view_id": {id}, "email": {"other@b.com"}, "password": {"y"}})
	require.Equal(t, http.StatusConflict, rejected.Code)
	doc := testutils.ParseHTML(t, rejected.Body.Bytes())
	assert.Equal(t, "a@b.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))

	a.gw.Release()
	var res *httptest.ResponseRecorder
	select {
	case res = <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first submit did not finish")
	}
	require.Equal(t, http.StatusUnauthorized, res.Code)
	doc = testutils.ParseHTML(t, res.Body.Bytes())
	assert.Equal(t, "a@b.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
	assert.Equal(t, 1, a.gw.CallCount())
}

func TestSocialPost(t *testing.T) {
	a := setupAuthTest(t)

	t.Run("redirects to the provider", func(t *testing.T) {
		rec := a.post("/sign-up/social", url.Values{"provider": {"github"}, "email": {"typed@example.com"}})

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://auth.example.test/github", rec.Header().Get(echo.HeaderLocation))
		calls := a.gw.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, domain.ProviderGitHub, calls[0].Provider)
		assert.Equal(t, "http://localhost:8080/", calls[0].CallbackURL)
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		rec := a.post("/sign-in/social", url.Values{"provider": {"myspace"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 1, a.gw.CallCount())
	})

	t.Run("provider error keeps the typed fields", func(t *testing.T) {
		a.gw.Enqueue(gateway.Result{Err: &domain.GatewayError{Status: http.StatusNotFound, Message: "Provider not found", Err: domain.ErrUnknownProvider}})
		rec := a.post("/sign-in/social", url.Values{"provider": {"google"}, "email": {"typed@example.com"}})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		doc := testutils.ParseHTML(t, rec.Body.Bytes())
		assert.Equal(t, "Provider not found", strings.TrimSpace(doc.Find(".alert-title").Text()))
		assert.Equal(t, "typed@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
	})

	assert.Contains(t, a.events.Topics(), audit.Social.Name())
}

func TestSignOutPost(t *testing.T) {
	a := setupAuthTest(t)
	signIn := a.post("/sign-in", url.Values{"email": {"a@b.com"}, "password": {"x"}})
	require.Equal(t, http.StatusSeeOther, signIn.Code)

	rec := a.post("/sign-out", url.Values{}, withCookies(signIn.Result().Cookies()))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sign-in", rec.Header().Get(echo.HeaderLocation))

	calls := a.gw.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "SignOut", calls[1].Method)
	assert.Equal(t, "token-a@b.com", calls[1].Token)

	cleared := cookieNamed(rec.Result().Cookies(), authsession.CookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
	assert.Equal(t, []string{"auth.sign_in", "auth.sign_out"}, a.events.Topics())

	// The flash shows up on the sign-in page.
	page := a.get("/sign-in", withCookies(rec.Result().Cookies()))
	doc := testutils.ParseHTML(t, page.Body.Bytes())
	assert.Equal(t, "You have been signed out.", strings.TrimSpace(doc.Find(".flash-success").Text()))
}

func TestSignOutPost_WithoutSession(t *testing.T) {
	a := setupAuthTest(t)

	rec := a.post("/sign-out", url.Values{})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, a.gw.CallCount())
}

func TestSocialCallbackGet(t *testing.T) {
	a := setupAuthTest(t)

	t.Run("explains the development gateway", func(t *testing.T) {
		rec := a.get(gateway.CallbackPath + "?code=abc&state=xyz")

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/sign-in", rec.Header().Get(echo.HeaderLocation))
		page := a.get("/sign-in", withCookies(rec.Result().Cookies()))
		doc := testutils.ParseHTML(t, page.Body.Bytes())
		assert.Contains(t, doc.Find(".flash-error").Text(), "not available with the development auth gateway")
	})

	t.Run("provider error", func(t *testing.T) {
		rec := a.get(gateway.CallbackPath + "?error=access_denied")

		page := a.get("/sign-in", withCookies(rec.Result().Cookies()))
		doc := testutils.ParseHTML(t, page.Body.Bytes())
		assert.Equal(t, "Social sign-in was cancelled.", strings.TrimSpace(doc.Find(".flash-error").Text()))
	})

	assert.Zero(t, a.gw.CallCount())
}
