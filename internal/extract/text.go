package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Page is the prose extracted from an HTML document
type Page struct {
	Title   string
	Text    string
	Adapter string
}

// skippedElements never contribute visible prose
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"svg": true, "template": true, "head": true, "form": true,
	"nav": true, "button": true, "select": true, "textarea": true,
}

// blockElements end a paragraph
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
	"table": true, "tr": true, "br": true, "hr": true, "figure": true,
	"figcaption": true, "header": true, "footer": true, "aside": true, "dd": true, "dt": true,
}

var (
	spaceRun     = regexp.MustCompile(`[ \t\r\f\v]+`)
	paragraphRun = regexp.MustCompile(`\n{3,}`)
)

// VisibleText returns the readable text under n, with block elements
// separated by blank lines and scripts/styles skipped
func VisibleText(n *html.Node) string {
	return VisibleTextFunc(n, nil)
}

// VisibleTextFunc is VisibleText with an extra filter; nodes for which
// skip returns true are dropped with their subtree
func VisibleTextFunc(n *html.Node, skip func(*html.Node) bool) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] || (skip != nil && skip(n)) {
				return
			}
			if hasAttr(n, "hidden") || strings.EqualFold(attr(n, "aria-hidden"), "true") {
				return
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteString("\n\n")
		}
	}

	walk(n)
	return normalizeWhitespace(buf.String())
}

// Title returns the document's <title> text
func Title(doc *html.Node) string {
	var title string

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(doc)
	return title
}

// normalizeWhitespace collapses runs of spaces inside lines and
// keeps at most one blank line between paragraphs
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	joined := strings.Join(lines, "\n")
	joined = paragraphRun.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
