package view

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// ErrorContent is the body of the plain error page. It is a templ component
// so the error handler can render it without building a gomponents tree.
func ErrorContent(status int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if message == "" {
			message = http.StatusText(status)
		}
		_, err := fmt.Fprintf(w,
			`<main class="error-page"><h1>%d</h1><p>%s</p><a href="/">Back to home</a></main>`,
			status, templ.EscapeString(message))
		return err
	})
}

// ErrorPage wraps ErrorContent in the document shell.
func ErrorPage(status int, message string) templ.Component {
	return AdaptGomponentToTempl(
		Page(http.StatusText(status), FlashData{}, AdaptTemplToGomponent(ErrorContent(status, message))),
	)
}
