package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/lingoscope/internal/extract/adapters"
	"github.com/ppiankov/lingoscope/internal/util"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StdinSource names standard input as a source
const StdinSource = "-"

// Source is text loaded from a file, stdin or a web page
type Source struct {
	Origin string // Path, URL or "-"
	Title  string
	Text   string
}

// SourceLoader reads the text to check from its origin
type SourceLoader struct {
	fetcher  *Fetcher
	robots   *util.RobotsChecker
	registry *adapters.Registry
	stdin    io.Reader
	maxBytes int64
}

// NewSourceLoader creates a loader; robots may be nil to skip robots.txt checks
func NewSourceLoader(fetcher *Fetcher, robots *util.RobotsChecker, maxBytes int64) *SourceLoader {
	return &SourceLoader{
		fetcher:  fetcher,
		robots:   robots,
		registry: adapters.NewRegistry(),
		stdin:    os.Stdin,
		maxBytes: maxBytes,
	}
}

// IsURL reports whether source names a web page
func IsURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads source as a URL, "-" for stdin, or a file path
func (l *SourceLoader) Load(ctx context.Context, source string) (*Source, error) {
	switch {
	case source == StdinSource:
		text, err := l.readLimited(l.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &Source{Origin: source, Text: text}, nil

	case IsURL(source):
		return l.loadURL(ctx, source)

	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", source, err)
		}
		defer func() { _ = f.Close() }()

		text, err := l.readLimited(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		return &Source{Origin: source, Text: text}, nil
	}
}

// loadURL fetches a page, honouring robots.txt, and extracts its prose
func (l *SourceLoader) loadURL(ctx context.Context, rawURL string) (*Source, error) {
	if l.robots != nil {
		decision, err := l.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if decision.CrawlDelay > 0 && l.fetcher.limiter != nil {
			if err := l.fetcher.limiter.WaitWithDelay(ctx, rawURL, decision.CrawlDelay); err != nil {
				return nil, err
			}
		}
	}

	result, err := l.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if result.ContentType == "text/plain" {
		return &Source{Origin: result.FinalURL, Title: result.Subject, Text: result.Body}, nil
	}

	page, err := l.registry.Extract(result.Body, result.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	title := page.Title
	if title == "" {
		title = result.Subject
	}

	return &Source{Origin: result.FinalURL, Title: title, Text: page.Text}, nil
}

// readLimited reads at most maxBytes, failing on longer input
func (l *SourceLoader) readLimited(r io.Reader) (string, error) {
	if l.maxBytes <= 0 {
		b, err := io.ReadAll(r)
		return string(b), err
	}

	b, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > l.maxBytes {
		return "", fmt.Errorf("input exceeds %d bytes", l.maxBytes)
	}
	return string(b), nil
}
