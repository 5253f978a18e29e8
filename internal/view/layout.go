package view

import (
	cmp "maragu.dev/gomponents"
	g "maragu.dev/gomponents/html"
)

// HTMXScript is the htmx build the pages load. The forms work without it.
const HTMXScript = "https://unpkg.com/htmx.org@2.0.4"

// CalculateTitle handles the conditional logic for the page title.
func CalculateTitle(title string) string {
	if title != "" {
		return title + " - Durian-AI"
	}
	return "Durian-AI"
}

// Page is the HTML document shell shared by every full-page response.
func Page(title string, flash FlashData, body ...cmp.Node) cmp.Node {
	return g.Doctype(
		g.HTML(
			g.Lang("en"),
			g.Head(
				g.Meta(g.Charset("utf-8")),
				g.Meta(g.Name("viewport"), g.Content("width=device-width, initial-scale=1")),
				g.TitleEl(cmp.Text(CalculateTitle(title))),
				g.Link(g.Rel("stylesheet"), g.Href("/static/app.css")),
				g.Script(g.Src(HTMXScript), cmp.Attr("defer")),
			),
			g.Body(
				g.Class("antialiased"),
				Flashes(flash),
				cmp.Group(body),
			),
		),
	)
}

// Flashes renders one banner per flash message.
func Flashes(flash FlashData) cmp.Node {
	if flash.Empty() {
		return nil
	}
	return g.Div(
		g.ID("flashes"),
		g.Class("flashes"),
		cmp.Map(flash.Success, func(msg string) cmp.Node {
			return g.Div(g.Class("flash flash-success"), g.Role("status"), cmp.Text(msg))
		}),
		cmp.Map(flash.Error, func(msg string) cmp.Node {
			return g.Div(g.Class("flash flash-error"), g.Role("alert"), cmp.Text(msg))
		}),
	)
}

// AuthLayout centres the auth card on the page.
func AuthLayout(title string, flash FlashData, content cmp.Node) cmp.Node {
	return Page(title, flash,
		g.Div(
			g.Class("auth-layout"),
			g.Div(g.Class("auth-container"), content),
		),
	)
}
