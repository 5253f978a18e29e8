package view

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	cmp "maragu.dev/gomponents"
	g "maragu.dev/gomponents/html"
)

var upper = cases.Upper(language.Und)

// Initials returns up to two upper-cased initials for name: the first
// letters of its first and last words.
func Initials(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return "?"
	case 1:
		return upper.String(firstRune(words[0]))
	default:
		return upper.String(firstRune(words[0]) + firstRune(words[len(words)-1]))
	}
}

func firstRune(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}

// Avatar shows the user's image when set, otherwise their initials.
func Avatar(name, image string) cmp.Node {
	if image != "" {
		return g.Img(g.Class("avatar"), g.Src(image), g.Alt(name))
	}
	return g.Span(
		g.Class("avatar avatar-initials"),
		g.Aria("hidden", "true"),
		cmp.Text(Initials(name)),
	)
}
