package view

import (
	cmp "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	g "maragu.dev/gomponents/html"

	"github.com/nfrund/durian/internal/domain"
	"github.com/nfrund/durian/internal/forms"
)

// AuthFormID is the element the htmx swaps target.
const AuthFormID = "auth-form"

// ViewIDField carries the mounted view across posts.
const ViewIDField = "view_id"

type formCopy struct {
	path        string
	socialPath  string
	heading     string
	subheading  string
	submit      string
	altPrompt   string
	altLabel    string
	altHref     string
	panelClass  string
	pageTitle   string
	fields      []fieldSpec
	providerSeq []domain.SocialProvider
}

type fieldSpec struct {
	name         string
	label        string
	inputType    string
	placeholder  string
	autocomplete string
}

var (
	emailField    = fieldSpec{forms.FieldEmail, "Email", "email", "email@example.com", "email"}
	passwordField = fieldSpec{forms.FieldPassword, "Password", "password", "*********************", "current-password"}
)

var signInCopy = formCopy{
	path:        "/sign-in",
	socialPath:  "/sign-in/social",
	heading:     "Welcome back !",
	subheading:  "Login to your account",
	submit:      "Login",
	altPrompt:   "Don't have an account ? ",
	altLabel:    "Sign Up",
	altHref:     "/sign-up",
	panelClass:  "brand-panel brand-panel-green",
	pageTitle:   "Sign in",
	fields:      []fieldSpec{emailField, passwordField},
	providerSeq: []domain.SocialProvider{domain.ProviderGoogle, domain.ProviderGitHub},
}

var signUpCopy = formCopy{
	path:       "/sign-up",
	socialPath: "/sign-up/social",
	heading:    "Let's get started",
	subheading: "Create your account",
	submit:     "Create account",
	altPrompt:  "Already have an account ? ",
	altLabel:   "Sign In",
	altHref:    "/sign-in",
	panelClass: "brand-panel brand-panel-gray",
	pageTitle:  "Sign up",
	fields: []fieldSpec{
		{forms.FieldName, "Name", "text", "Your Name", "name"},
		emailField,
		{forms.FieldPassword, "Password", "password", "*********************", "new-password"},
		{forms.FieldConfirmPassword, "Confirm Password", "password", "*********************", "new-password"},
	},
	providerSeq: []domain.SocialProvider{domain.ProviderGitHub, domain.ProviderGoogle},
}

func copyFor(kind forms.Kind) formCopy {
	if kind == forms.KindSignUp {
		return signUpCopy
	}
	return signInCopy
}

// AuthPage renders the full sign-in or sign-up page; snap.Kind picks
// which.
func AuthPage(snap forms.Snapshot, flash FlashData) cmp.Node {
	fc := copyFor(snap.Kind)
	return AuthLayout(fc.pageTitle, flash,
		g.Div(
			g.Class("auth-view"),
			g.Div(
				g.Class("card"),
				g.Div(
					g.Class("card-content"),
					AuthForm(snap),
					brandPanel(fc),
				),
			),
			g.Div(
				g.Class("terms"),
				cmp.Text("By clicking continue, you agree to our "),
				g.A(g.Href("#"), cmp.Text("Terms of Services")),
				cmp.Text(" and "),
				g.A(g.Href("#"), cmp.Text("Privacy Policy")),
			),
		),
	)
}

// AuthForm renders the form for snap. It is also the fragment htmx swaps in.
func AuthForm(snap forms.Snapshot) cmp.Node {
	fc := copyFor(snap.Kind)
	pending := snap.FormState.Pending

	return g.Form(
		g.ID(AuthFormID),
		g.Class("auth-form"),
		g.Method("post"),
		g.Action(fc.path),
		cmp.Attr("novalidate"),
		hx.Post(fc.path),
		hx.Target("#"+AuthFormID),
		hx.Swap("outerHTML"),
		cmp.Attr("hx-disabled-elt", "find button"),
		g.Input(g.Type("hidden"), g.Name(ViewIDField), g.Value(snap.ViewID)),
		g.Div(
			g.Class("auth-form-body"),
			g.Div(
				g.Class("auth-heading"),
				g.H1(cmp.Text(fc.heading)),
				g.P(g.Class("muted"), cmp.Text(fc.subheading)),
			),
			cmp.Map(fc.fields, func(f fieldSpec) cmp.Node {
				return formField(f, snap)
			}),
			errorBanner(snap.FormState.Error),
			g.Button(
				g.Type("submit"),
				g.Class("btn btn-primary"),
				cmp.If(pending, g.Disabled()),
				cmp.Text(fc.submit),
			),
			g.Div(
				g.Class("divider"),
				g.Span(cmp.Text("Or continue with")),
			),
			g.Div(
				g.Class("social-buttons"),
				cmp.Map(fc.providerSeq, func(p domain.SocialProvider) cmp.Node {
					return socialButton(fc, p, pending)
				}),
			),
			g.Div(
				g.Class("auth-alt"),
				cmp.Text(fc.altPrompt),
				g.A(g.Href(fc.altHref), cmp.Text(fc.altLabel)),
			),
		),
	)
}

func formField(f fieldSpec, snap forms.Snapshot) cmp.Node {
	id := "field-" + f.name
	msg := snap.FieldError(f.name)
	value := snap.Value(f.name)
	// Secrets never go back to the browser.
	if f.inputType == "password" {
		value = ""
	}

	return g.Div(
		g.Class("form-item"),
		g.Label(g.For(id), cmp.Text(f.label)),
		g.Input(
			g.ID(id),
			g.Name(f.name),
			g.Type(f.inputType),
			g.Placeholder(f.placeholder),
			g.AutoComplete(f.autocomplete),
			cmp.If(value != "", g.Value(value)),
			cmp.If(msg != "", g.Aria("invalid", "true")),
			cmp.If(msg != "", g.Aria("describedby", id+"-error")),
		),
		cmp.If(msg != "", g.P(g.ID(id+"-error"), g.Class("form-message"), cmp.Text(msg))),
	)
}

func errorBanner(msg string) cmp.Node {
	if msg == "" {
		return nil
	}
	return g.Div(
		g.Class("alert alert-error"),
		g.Role("alert"),
		g.Span(g.Class("alert-title"), cmp.Text(msg)),
		g.Button(
			g.Type("button"),
			g.Class("alert-dismiss"),
			g.Aria("label", "Dismiss"),
			cmp.Attr("onclick", "this.parentElement.remove()"),
			cmp.Text("×"),
		),
	)
}

func socialButton(fc formCopy, p domain.SocialProvider, pending bool) cmp.Node {
	return g.Button(
		g.Type("submit"),
		g.Class("btn btn-outline"),
		g.Name("provider"),
		g.Value(string(p)),
		cmp.Attr("formaction", fc.socialPath),
		cmp.Attr("formnovalidate"),
		hx.Post(fc.socialPath),
		cmp.If(pending, g.Disabled()),
		cmp.Text(p.Label()),
	)
}

func brandPanel(fc formCopy) cmp.Node {
	return g.Div(
		g.Class(fc.panelClass),
		g.Img(g.Src("/static/logo.svg"), g.Alt("Logo"), g.Width("90"), g.Height("90")),
		g.P(cmp.Text("Durian AI")),
	)
}
