package view

import (
	"strings"

	cmp "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	g "maragu.dev/gomponents/html"

	"github.com/nfrund/durian/internal/domain"
)

// CommandPaletteID is the swap target of the palette fragments.
const CommandPaletteID = "command-palette"

// CommandResult is one entry in the palette list.
type CommandResult struct {
	Label string
	Href  string
}

// DefaultCommandResults is what the palette lists until real search exists.
var DefaultCommandResults = []CommandResult{{Label: "This is a test"}}

// SearchCommands filters the palette entries by a case-insensitive substring.
func SearchCommands(query string) []CommandResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return DefaultCommandResults
	}
	var out []CommandResult
	for _, r := range DefaultCommandResults {
		if strings.Contains(strings.ToLower(r.Label), q) {
			out = append(out, r)
		}
	}
	return out
}

// DashboardPage is the landing page for signed-in users.
func DashboardPage(sess *domain.Session, flash FlashData) cmp.Node {
	return Page("Dashboard", flash,
		g.Div(
			g.Class("dashboard"),
			g.Aside(
				g.Class("sidebar"),
				g.Div(
					g.Class("sidebar-brand"),
					g.Img(g.Src("/static/logo.svg"), g.Alt("Logo"), g.Width("36"), g.Height("36")),
					g.P(cmp.Text("Durian AI")),
				),
				g.Div(g.Class("sidebar-footer"), UserButton(sess)),
			),
			g.Main(
				g.Class("dashboard-main"),
				g.Nav(
					g.Class("dashboard-navbar"),
					CommandTrigger(),
				),
				CommandPalette(false, "", nil),
			),
		),
	)
}

// CommandTrigger opens the palette.
func CommandTrigger() cmp.Node {
	return g.Button(
		g.Type("button"),
		g.Class("command-trigger"),
		hx.Get("/dashboard/command?open=1"),
		hx.Target("#"+CommandPaletteID),
		hx.Swap("outerHTML"),
		g.Span(cmp.Text("Search")),
		g.Span(g.Class("kbd"), cmp.Text("⌘K")),
	)
}

// CommandPalette renders the palette dialog. Open/closed is its only state.
func CommandPalette(open bool, query string, results []CommandResult) cmp.Node {
	if !open {
		return g.Div(g.ID(CommandPaletteID))
	}
	if results == nil {
		results = SearchCommands(query)
	}
	return g.Div(
		g.ID(CommandPaletteID),
		cmp.El("dialog",
			cmp.Attr("open"),
			g.Class("command-dialog"),
			g.Aria("label", "Command palette"),
			g.Div(
				g.Class("command-header"),
				g.Input(
					g.Type("search"),
					g.Name("q"),
					g.Class("command-input"),
					g.Placeholder("Find a Meeting or Agent"),
					g.AutoComplete("off"),
					cmp.Attr("autofocus"),
					cmp.If(query != "", g.Value(query)),
					hx.Get("/dashboard/command/search"),
					hx.Trigger("input changed delay:200ms, search"),
					hx.Target("#command-results"),
					hx.Swap("outerHTML"),
				),
				g.Button(
					g.Type("button"),
					g.Class("command-close"),
					g.Aria("label", "Close"),
					hx.Get("/dashboard/command"),
					hx.Target("#"+CommandPaletteID),
					hx.Swap("outerHTML"),
					cmp.Text("×"),
				),
			),
			CommandResults(results),
		),
	)
}

// CommandResults renders the result list fragment.
func CommandResults(results []CommandResult) cmp.Node {
	return g.Ul(
		g.ID("command-results"),
		g.Class("command-list"),
		g.Role("listbox"),
		cmp.If(len(results) == 0, g.Li(g.Class("command-empty"), cmp.Text("No results found."))),
		cmp.Map(results, func(r CommandResult) cmp.Node {
			label := cmp.Text(r.Label)
			if r.Href != "" {
				label = g.A(g.Href(r.Href), cmp.Text(r.Label))
			}
			return g.Li(g.Class("command-item muted"), g.Role("option"), label)
		}),
	)
}

// UserButton renders the user menu, or nothing without a session.
func UserButton(sess *domain.Session) cmp.Node {
	if sess == nil || sess.User.ID == "" {
		return nil
	}
	u := sess.User
	return cmp.El("details",
		g.Class("user-button"),
		cmp.El("summary",
			g.Class("user-button-trigger"),
			Avatar(u.Name, u.Image),
			g.Div(
				g.Class("user-button-text"),
				g.P(g.Class("user-name"), cmp.Text(u.Name)),
				g.P(g.Class("user-email"), cmp.Text(u.Email)),
			),
			g.Span(g.Class("chevron"), g.Aria("hidden", "true"), cmp.Text("▾")),
		),
		g.Div(
			g.Class("user-menu"),
			g.Role("menu"),
			g.Div(
				g.Class("user-menu-label"),
				g.Span(g.Class("user-name"), cmp.Text(u.Name)),
				g.Span(g.Class("user-email muted"), cmp.Text(u.Email)),
			),
			g.Hr(),
			g.A(g.Class("user-menu-item"), g.Role("menuitem"), g.Href("#"), g.Span(cmp.Text("Billing"))),
			g.Form(
				g.Method("post"),
				g.Action("/sign-out"),
				g.Button(
					g.Type("submit"),
					g.Class("user-menu-item user-menu-logout"),
					g.Role("menuitem"),
					g.Span(cmp.Text("Logout")),
				),
			),
		),
	)
}
