package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/lingoscope/internal/worker"
)

func noFetchSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func newTestFetcher() *Fetcher {
	return NewFetcher(5*time.Second, "test-agent", 1<<20, nil)
}

// countingServer answers with status for the first failures requests, then serves body as HTML
func countingServer(t *testing.T, failures int32, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= failures {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestFetch_SendsHeadersAndNamesSubject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := newTestFetcher().Fetch(context.Background(), server.URL+"/blog/my-first_essay.html")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>OK</body></html>", result.Body)
	assert.Equal(t, "text/html", result.ContentType)
	assert.Equal(t, "my first essay", result.Subject)
}

func TestFetch_TruncatesLongBodies(t *testing.T) {
	server, _ := countingServer(t, 0, 0, "0123456789")

	result, err := NewFetcher(5*time.Second, "test-agent", 4, nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", result.Body)
}

func TestFetch_ContentTypes(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"text/plain; charset=utf-8", "text/plain", true},
		{"application/xhtml+xml", "application/xhtml+xml", true},
		{"TEXT/HTML", "text/html", true},
		{"application/pdf", "", false},
		{"image/png", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.header)
				_, _ = w.Write([]byte("body"))
			}))
			defer server.Close()

			result, err := newTestFetcher().Fetch(context.Background(), server.URL)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrUnsupportedContent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.ContentType)
		})
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noFetchSleep(t)
	server, hits := countingServer(t, 2, http.StatusServiceUnavailable, "<html>OK</html>")

	result, err := newTestFetcher().FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>OK</html>", result.Body)
	assert.EqualValues(t, 3, hits.Load())
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noFetchSleep(t)
	server, hits := countingServer(t, 10, http.StatusNotFound, "")

	_, err := newTestFetcher().FetchWithRetry(context.Background(), server.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, "unexpected status: 404 Not Found", err.Error())
	assert.EqualValues(t, 1, hits.Load())
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var slept []time.Duration
	orig := fetchSleepFunc
	fetchSleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { fetchSleepFunc = orig })

	server, hits := countingServer(t, 10, http.StatusBadGateway, "")

	_, err := newTestFetcher().FetchWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.EqualValues(t, fetchAttempts, hits.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestFetch_TooManyRequestsHoldsHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := newTestFetcher().WithLimiter(worker.NewLimiter(0, 1))
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	// The next request must wait out the hold
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{"429", &StatusError{Code: 429, Status: "429 Too Many Requests"}, true},
		{"404", &StatusError{Code: 404, Status: "404 Not Found"}, false},
		{"403", &StatusError{Code: 403, Status: "403 Forbidden"}, false},
		{"refused", fmt.Errorf("fetch: %w", syscall.ECONNREFUSED), true},
		{"reset", fmt.Errorf("fetch: %w", syscall.ECONNRESET), true},
		{"eof", fmt.Errorf("fetch: %w", io.EOF), true},
		{"canceled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"content type", fmt.Errorf("%w: image/png", ErrUnsupportedContent), false},
		{"other", errors.New("create request: invalid URL"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableFetchError(tt.err))
		})
	}
}

func TestExtractSubject(t *testing.T) {
	assert.Equal(t, "example.com", extractSubject("https://example.com/"))
	assert.Equal(t, "my essay", extractSubject("https://example.com/posts/my_essay"))
	assert.Equal(t, "notes", extractSubject("https://example.com/notes.txt"))
}

func TestFetchWithRetry_BackoffStopsWhenCancelled(t *testing.T) {
	server, hits := countingServer(t, 10, http.StatusServiceUnavailable, "")

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestFetcher().FetchWithRetry(ctx, server.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.EqualValues(t, 1, hits.Load())
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}
