package adapters

import (
	"golang.org/x/net/html"

	"github.com/ppiankov/lingoscope/internal/extract"
)

// GenericAdapter handles any page: blogs, news articles, plain sites
type GenericAdapter struct{}

// NewGenericAdapter creates the fallback adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// Matches accepts every host
func (a *GenericAdapter) Matches(string) bool {
	return true
}

// ExtractText prefers <article>, then <main>, then the whole document,
// dropping page chrome
func (a *GenericAdapter) ExtractText(doc *html.Node) (string, error) {
	root := findFirst(doc, func(n *html.Node) bool { return isElement(n, "article") })
	if root == nil {
		root = findFirst(doc, func(n *html.Node) bool { return isElement(n, "main") })
	}
	if root == nil {
		root = doc
	}

	return extract.VisibleTextFunc(root, func(n *html.Node) bool {
		return isElement(n, "header", "footer", "aside", "nav") ||
			attrValue(n, "role") == "navigation" ||
			hasClass(n, "cookie-banner", "sidebar")
	}), nil
}
