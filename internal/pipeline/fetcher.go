package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/ppiankov/lingoscope/internal/worker"
)

// fetchSleepFunc is the sleep function used between retries (replaceable in tests)
var fetchSleepFunc = worker.Sleep

const (
	fetchAttempts = 3
	maxRedirects  = 3
)

// StatusError is a non-2xx answer from a fetched site
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// Temporary reports whether the site may answer differently later
func (e *StatusError) Temporary() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ErrUnsupportedContent is returned for pages that are neither HTML nor plain text
var ErrUnsupportedContent = errors.New("unsupported content type")

// Fetcher downloads pages whose prose is to be checked
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
}

// NewFetcher creates a fetcher; bodies beyond maxBytes are cut off
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, transport http.RoundTripper) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// WithLimiter paces requests per host
func (f *Fetcher) WithLimiter(l *worker.Limiter) *Fetcher {
	f.limiter = l
	return f
}

// FetchResult is a downloaded page
type FetchResult struct {
	Body        string
	ContentType string // Media type without parameters, e.g. "text/html"
	Subject     string // Readable name derived from the final URL
	FinalURL    string
}

// FetchWithRetry fetches rawURL, retrying transient failures with backoff (1s, 2s)
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == fetchAttempts || ctx.Err() != nil || !isRetryableFetchError(err) {
			break
		}
		if err := fetchSleepFunc(ctx, time.Duration(1<<(attempt-1))*time.Second); err != nil {
			break
		}
	}
	return nil, lastErr
}

// Fetch retrieves the page at rawURL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en;q=1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests && f.limiter != nil {
			f.limiter.Hold(rawURL, worker.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
		}
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	mediaType := textMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		Body:        string(body),
		ContentType: mediaType,
		Subject:     extractSubject(finalURL),
		FinalURL:    finalURL,
	}, nil
}

// isRetryableFetchError reports whether err is a transient network or server failure
func isRetryableFetchError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// textMediaType returns the media type when it is HTML or plain text, otherwise "".
// A missing header is treated as HTML.
func textMediaType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return "text/html"
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return mediaType
	}
	return ""
}

// extractSubject turns the last URL path segment into a readable name
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	last := path[strings.LastIndex(path, "/")+1:]
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return strings.NewReplacer("_", " ", "-", " ").Replace(last)
}
