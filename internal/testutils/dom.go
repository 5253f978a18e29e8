package testutils

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"maragu.dev/gomponents"
)

// ParseHTML parses the provided HTML payload into a goquery document for assertions.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// RenderNode renders a gomponents node and parses the result.
func RenderNode(t testing.TB, node gomponents.Node) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	if err := node.Render(&buf); err != nil {
		t.Fatalf("render node: %v", err)
	}
	return ParseHTML(t, buf.Bytes())
}
