package extract

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestVisibleText(t *testing.T) {
	doc := parse(t, `<html><head><title> My  Essay </title><style>p{color:red}</style></head>
<body>
<nav><a href="/">Home</a></nav>
<h1>Holiday</h1>
<p>I has   a great
holiday.</p>
<script>var x = "I has";</script>
<p>We <b>went</b> to the sea.</p>
<div hidden>secret</div>
<span aria-hidden="true">icon</span>
</body></html>`)

	got := VisibleText(doc)
	want := "Holiday\n\nI has a great\nholiday.\n\nWe went to the sea."
	if got != want {
		t.Errorf("VisibleText() =\n%q\nwant\n%q", got, want)
	}

	if title := Title(doc); title != "My  Essay" {
		t.Errorf("Title() = %q, want %q", title, "My  Essay")
	}
}

func TestVisibleTextFunc_Skip(t *testing.T) {
	doc := parse(t, `<body><p>Keep this.</p><p class="ad">Buy now!</p></body>`)

	got := VisibleTextFunc(doc, func(n *html.Node) bool {
		return attr(n, "class") == "ad"
	})
	if got != "Keep this." {
		t.Errorf("got %q, want %q", got, "Keep this.")
	}
}

func TestVisibleText_Empty(t *testing.T) {
	doc := parse(t, `<html><body><script>only()</script></body></html>`)
	if got := VisibleText(doc); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
	if got := Title(doc); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
}
