package adapters

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/lingoscope/internal/extract"
)

// Adapter pulls the checkable prose out of one kind of page
type Adapter interface {
	Name() string

	// Matches reports whether the adapter understands pages from host
	Matches(host string) bool

	// ExtractText returns the page's prose, paragraphs separated by blank lines
	ExtractText(doc *html.Node) (string, error)
}

// Registry picks a site adapter for a page, falling back to the generic one
type Registry struct {
	sites   []Adapter
	generic Adapter
}

// NewRegistry returns a registry with the built-in site adapters
func NewRegistry() *Registry {
	return &Registry{
		sites:   []Adapter{NewWikipediaAdapter()},
		generic: NewGenericAdapter(),
	}
}

// Register adds a site adapter; later adapters are tried after earlier ones
func (r *Registry) Register(a Adapter) {
	r.sites = append(r.sites, a)
}

// FindAdapter returns the first site adapter matching rawURL's host, or the generic one
func (r *Registry) FindAdapter(rawURL string) Adapter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return r.generic
	}
	host := strings.ToLower(u.Hostname())
	for _, a := range r.sites {
		if a.Matches(host) {
			return a
		}
	}
	return r.generic
}

// Extract parses an HTML page and returns its title and prose
func (r *Registry) Extract(page, rawURL string) (*extract.Page, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	a := r.FindAdapter(rawURL)
	text, err := a.ExtractText(doc)
	if err != nil {
		return nil, fmt.Errorf("%s adapter: %w", a.Name(), err)
	}

	return &extract.Page{
		Title:   extract.Title(doc),
		Text:    text,
		Adapter: a.Name(),
	}, nil
}
