package grammar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/lingoscope/internal/cache"
	"github.com/ppiankov/lingoscope/internal/model"
	"github.com/ppiankov/lingoscope/internal/worker"
)

const hasResponse = `{
  "language": {"name": "English (US)", "code": "en-US"},
  "matches": [{
    "offset": 2,
    "length": 3,
    "message": "The pronoun 'I' must be used with a non-third-person form of a verb.",
    "shortMessage": "Grammatical problem",
    "replacements": [{"value": "have"}, {"value": "had"}],
    "rule": {
      "id": "NON3PRS_VERB",
      "description": "Agreement error: third-person verb with first-person subject",
      "issueType": "grammar",
      "category": {"id": "GRAMMAR", "name": "Grammar"}
    },
    "context": {"text": "I has one error.", "offset": 2, "length": 3},
    "sentence": "I has one error."
  }]
}`

func noSleep(t *testing.T) {
	t.Helper()
	orig := checkSleepFunc
	checkSleepFunc = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { checkSleepFunc = orig })
}

func newTestClient(endpoint string) *Client {
	cfg := model.DefaultConfig().Grammar
	cfg.Endpoint = endpoint
	cfg.Timeout = 5 * time.Second
	return NewClient(cfg)
}

func TestCheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "LingoScope/"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "I has one error.", r.PostForm.Get("text"))
		assert.Equal(t, "en-GB", r.PostForm.Get("language"))
		assert.Empty(t, r.PostForm.Get("apiKey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, hasResponse)
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Check(context.Background(), "I has one error.", "en-GB")
	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)

	m := resp.Matches[0]
	assert.Equal(t, 2, m.Offset)
	assert.Equal(t, 3, m.Length)
	assert.Equal(t, "have", m.Replacements[0].Value)
	assert.Equal(t, "grammar", m.Rule.IssueType)
	assert.Equal(t, "GRAMMAR", m.Rule.Category.ID)
	require.NotNil(t, resp.Language)
	assert.Equal(t, "en-US", resp.Language.Code)
}

func TestCheck_DefaultLanguageAndCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "en-US", r.PostForm.Get("language"))
		assert.Equal(t, "me@example.com", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("apiKey"))
		_, _ = fmt.Fprint(w, `{"matches": []}`)
	}))
	defer server.Close()

	cfg := model.DefaultConfig().Grammar
	cfg.Endpoint = server.URL
	cfg.Username = "me@example.com"
	cfg.APIKey = "secret"

	resp, err := NewClient(cfg).Check(context.Background(), "Fine text here.", "")
	require.NoError(t, err)
	assert.Empty(t, resp.Matches)
}

func TestCheck_RetriesTransientFailures(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = fmt.Fprint(w, hasResponse)
		}
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Check(context.Background(), "I has one error.", "")
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 1)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestCheck_BackoffDurations(t *testing.T) {
	var sleeps []time.Duration
	orig := checkSleepFunc
	checkSleepFunc = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	defer func() { checkSleepFunc = orig }()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Check(context.Background(), "Some text.", "")
	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps)
}

func TestCheck_ErrorKinds(t *testing.T) {
	noSleep(t)

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		kind     error
		status   int
		attempts int32
	}{
		{
			name:     "rate limited after retries",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			kind:     ErrRateLimited,
			status:   http.StatusTooManyRequests,
			attempts: 3,
		},
		{
			name:     "server error after retries",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			kind:     ErrUpstreamStatus,
			status:   http.StatusInternalServerError,
			attempts: 3,
		},
		{
			name: "client error is permanent",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "Error: Missing 'language' parameter", http.StatusBadRequest)
			},
			kind:     ErrUpstreamStatus,
			status:   http.StatusBadRequest,
			attempts: 1,
		},
		{
			name:     "not JSON",
			handler:  func(w http.ResponseWriter, r *http.Request) { _, _ = fmt.Fprint(w, "<html>maintenance</html>") },
			kind:     ErrMalformedResponse,
			attempts: 1,
		},
		{
			name:     "missing matches",
			handler:  func(w http.ResponseWriter, r *http.Request) { _, _ = fmt.Fprint(w, `{"software": {}}`) },
			kind:     ErrMalformedResponse,
			attempts: 1,
		},
		{
			name: "negative offset",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = fmt.Fprint(w, `{"matches": [{"offset": -1, "length": 2, "message": "x"}]}`)
			},
			kind:     ErrMalformedResponse,
			attempts: 1,
		},
		{
			name: "span past end of text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = fmt.Fprint(w, `{"matches": [{"offset": 8, "length": 40, "message": "x"}]}`)
			},
			kind:     ErrMalformedResponse,
			attempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				tt.handler(w, r)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Check(context.Background(), "I has one error.", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.attempts, attempts.Load())

			var se *ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
		})
	}
}

func TestCheck_Unreachable(t *testing.T) {
	noSleep(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, err := newTestClient(endpoint).Check(context.Background(), "I has one error.", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, "unreachable", KindName(err))
}

func TestCheck_UsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, hasResponse)
	}))
	defer server.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	client := newTestClient(server.URL).WithCache(store, time.Minute)

	for i := 0; i < 3; i++ {
		resp, err := client.Check(context.Background(), "I has one error.", "en-US")
		require.NoError(t, err)
		require.Len(t, resp.Matches, 1)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err := client.Check(context.Background(), "I has one error.", "en-GB")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "language is part of the cache key")
}

func TestCheck_CorruptCacheEntryRefetched(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, hasResponse)
	}))
	defer server.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	client := newTestClient(server.URL).WithCache(store, time.Minute)

	key := cache.Key(server.URL, "en-US", "I has one error.")
	require.NoError(t, store.Set(key, []byte("not json"), time.Minute))

	resp, err := client.Check(context.Background(), "I has one error.", "en-US")
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 1)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCheck_ResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, hasResponse)
	}))
	defer server.Close()

	cfg := model.DefaultConfig().Grammar
	cfg.Endpoint = server.URL
	cfg.MaxBodyBytes = 64

	_, err := NewClient(cfg).Check(context.Background(), "I has one error.", "")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{&ServiceError{Kind: ErrUnreachable}, true},
		{&ServiceError{Kind: ErrRateLimited, StatusCode: 429}, true},
		{&ServiceError{Kind: ErrUpstreamStatus, StatusCode: 503}, true},
		{&ServiceError{Kind: ErrUpstreamStatus, StatusCode: 404}, false},
		{&ServiceError{Kind: ErrMalformedResponse}, false},
		{fmt.Errorf("wrapped: %w", &ServiceError{Kind: ErrUnreachable}), true},
		{errors.New("create request: bad URL"), false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.retryable, isRetryable(tt.err), "isRetryable(%v)", tt.err)
	}
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "rate_limited", KindName(&ServiceError{Kind: ErrRateLimited}))
	assert.Equal(t, "upstream_status", KindName(fmt.Errorf("chunk 1/2: %w", &ServiceError{Kind: ErrUpstreamStatus})))
	assert.Equal(t, "malformed_response", KindName(&ServiceError{Kind: ErrMalformedResponse}))
	assert.Equal(t, "", KindName(errors.New("other")))
}

func TestServiceError_Message(t *testing.T) {
	err := &ServiceError{Kind: ErrUpstreamStatus, StatusCode: 400, Err: errors.New("bad language")}
	assert.Equal(t, "grammar service returned an error status (HTTP 400): bad language", err.Error())
}

func TestCheck_RateLimitedHoldsEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var sleeps int
	orig := checkSleepFunc
	checkSleepFunc = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}
	defer func() { checkSleepFunc = orig }()

	client := newTestClient(server.URL).WithLimiter(worker.NewLimiter(0, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := client.Check(ctx, "I has one error.", "en-US")

	// The second attempt waits on the 1s hold and runs out of time
	require.ErrorIs(t, err, ErrRateLimited)
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, time.Second, se.RetryAfter)
	assert.Equal(t, 1, sleeps)
}

func TestCheck_DeadlineStaysVisible(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := newTestClient(server.URL).Check(ctx, "I has one error.", "en-US")

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestCheck_BackoffStopsWhenCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(server.URL).Check(ctx, "Some text.", "")

	require.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Less(t, time.Since(start), 900*time.Millisecond, "the 1s backoff should end with the context")
}
