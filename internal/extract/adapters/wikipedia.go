package adapters

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/lingoscope/internal/extract"
)

// citationMarker matches leftover footnote markers such as [12] or [citation needed]
var citationMarker = regexp.MustCompile(`\[(\d+|[a-z]|citation needed|clarification needed|note \d+)\]`)

// WikipediaAdapter extracts article prose from Wikipedia pages
type WikipediaAdapter struct {
	stopSections []string
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{
		stopSections: []string{"references", "notes", "see also", "external links", "further reading", "bibliography"},
	}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// Matches accepts wikipedia.org and its language subdomains
func (a *WikipediaAdapter) Matches(host string) bool {
	return host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org")
}

// ExtractText returns the article paragraphs and headings up to the
// reference sections, without infoboxes or footnote markers
func (a *WikipediaAdapter) ExtractText(doc *html.Node) (string, error) {
	content := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "div") &&
			(hasClass(n, "mw-parser-output") || attrValue(n, "id") == "mw-content-text")
	})
	if content == nil {
		content = doc
	}

	article := &html.Node{Type: html.ElementNode, Data: "div"}

	var stopped bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && !stopped; {
			next := c.NextSibling

			switch {
			case isElement(c, "h2") && a.isStopSection(c):
				stopped = true
			case isElement(c, "table", "style", "figure") || isChrome(c):
			case isElement(c, "p", "h2", "h3", "h4", "blockquote"):
				n.RemoveChild(c)
				article.AppendChild(c)
			default:
				walk(c)
			}

			c = next
		}
	}
	walk(content)

	text := extract.VisibleTextFunc(article, func(n *html.Node) bool {
		return (isElement(n, "sup") && hasClass(n, "reference")) || hasClass(n, "mw-editsection")
	})

	return strings.TrimSpace(citationMarker.ReplaceAllString(text, "")), nil
}

// isStopSection reports whether a heading starts the reference material
func (a *WikipediaAdapter) isStopSection(h *html.Node) bool {
	title := strings.ToLower(strings.TrimSpace(extract.VisibleText(h)))
	for _, s := range a.stopSections {
		if strings.HasPrefix(title, s) {
			return true
		}
	}
	return false
}

// isChrome reports navigation boxes, hatnotes and similar non-prose blocks
func isChrome(n *html.Node) bool {
	return hasClass(n, "infobox", "navbox", "hatnote", "reflist", "thumb", "mw-editsection", "toc", "shortdescription")
}
