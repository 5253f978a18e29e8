package rendering

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cmp "maragu.dev/gomponents"
	g "maragu.dev/gomponents/html"
)

func templHello() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>templ</p>")
		return err
	})
}

func TestRenderComponent(t *testing.T) {
	r := NewUniversalRenderer()

	out, err := r.RenderComponent(context.Background(), templHello())
	require.NoError(t, err)
	assert.Equal(t, "<p>templ</p>", string(out))

	out, err = r.RenderComponent(context.Background(), g.Span(cmp.Text("gomponents")))
	require.NoError(t, err)
	assert.Equal(t, "<span>gomponents</span>", string(out))

	_, err = r.RenderComponent(context.Background(), 42)
	assert.ErrorContains(t, err, "unsupported component type: int")
}

func TestRenderPage(t *testing.T) {
	e := echo.New()
	r := NewUniversalRenderer()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, r.RenderPage(c, http.StatusUnprocessableEntity, g.Div(cmp.Text("x"))))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "<div>x</div>", rec.Body.String())
}

func TestRenderPage_ErrorLeavesResponseUncommitted(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := NewUniversalRenderer().RenderPage(c, http.StatusOK, struct{}{})
	require.Error(t, err)
	assert.False(t, c.Response().Committed)
}

func TestEchoRenderer(t *testing.T) {
	e := echo.New()
	e.Renderer = NewUniversalRenderer()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, c.Render(http.StatusOK, "", templHello()))
	assert.Equal(t, "<p>templ</p>", rec.Body.String())
}
