package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/lingoscope/internal/cache"
	"github.com/ppiankov/lingoscope/internal/model"
	"github.com/ppiankov/lingoscope/internal/util"
	"github.com/ppiankov/lingoscope/internal/worker"
)

const maxAttempts = 3

// checkSleepFunc is the sleep function used between retries (replaceable in tests)
var checkSleepFunc = worker.Sleep

// Response is the decoded body of a check request
type Response struct {
	Matches  []model.RemoteMatch `json:"matches"`
	Language *LanguageInfo       `json:"language,omitempty"`
}

// LanguageInfo is the language the service checked against
type LanguageInfo struct {
	Name             string            `json:"name"`
	Code             string            `json:"code"`
	DetectedLanguage *DetectedLanguage `json:"detectedLanguage,omitempty"`
}

// DetectedLanguage is the service's guess at the text's language
type DetectedLanguage struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Client talks to a LanguageTool-compatible check endpoint
type Client struct {
	httpClient   *http.Client
	cfg          model.GrammarConfig
	chunkWorkers int
	cache        cache.Cache
	cacheTTL     time.Duration
	limiter      *worker.Limiter
}

// NewClient creates a grammar client from configuration
func NewClient(cfg model.GrammarConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = model.DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5_000_000
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
		cfg:          cfg,
		chunkWorkers: 1,
	}
}

// WithCache stores raw responses in c for ttl
func (c *Client) WithCache(store cache.Cache, ttl time.Duration) *Client {
	c.cache = store
	c.cacheTTL = ttl
	return c
}

// WithLimiter paces requests to the endpoint host
func (c *Client) WithLimiter(l *worker.Limiter) *Client {
	c.limiter = l
	return c
}

// WithChunkWorkers bounds concurrent requests for one long text
func (c *Client) WithChunkWorkers(n int) *Client {
	if n > 0 {
		c.chunkWorkers = n
	}
	return c
}

// Check submits text for checking. An empty language uses the configured default.
// Texts longer than the chunk limit are checked piecewise and merged.
func (c *Client) Check(ctx context.Context, text, language string) (*Response, error) {
	if language == "" {
		language = c.cfg.Language
	}

	if c.cfg.ChunkChars > 0 && utf16Len(text) > c.cfg.ChunkChars {
		return c.checkChunked(ctx, text, language)
	}

	return c.checkOne(ctx, text, language)
}

// checkOne checks a single request-sized text, using the cache when present
func (c *Client) checkOne(ctx context.Context, text, language string) (*Response, error) {
	key := cache.Key(c.cfg.Endpoint, language, text)
	if c.cache != nil {
		if body, found := c.cache.Get(key); found {
			if resp, err := decodeResponse(body, text); err == nil {
				return resp, nil
			}
			_ = c.cache.Delete(key)
		}
	}

	body, err := c.postWithRetry(ctx, text, language)
	if err != nil {
		return nil, err
	}

	resp, err := decodeResponse(body, text)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(key, body, c.cacheTTL)
	}

	return resp, nil
}

// postWithRetry retries transient failures with exponential backoff (1s, 2s)
func (c *Client) postWithRetry(ctx context.Context, text, language string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := c.post(ctx, text, language)
		if err == nil {
			return body, nil
		}
		if lastErr != nil && ctx.Err() != nil {
			// Ran out of time waiting; report what the service said last
			break
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxAttempts || ctx.Err() != nil {
			break
		}

		if err := checkSleepFunc(ctx, time.Duration(1<<(attempt-1))*time.Second); err != nil {
			break
		}
	}

	return nil, lastErr
}

// post sends one check request and returns the raw body of a 2xx response
func (c *Client) post(ctx context.Context, text, language string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.cfg.Endpoint); err != nil {
			return nil, unreachable(fmt.Errorf("rate limiter: %w", err))
		}
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("language", language)
	if c.cfg.Username != "" && c.cfg.APIKey != "" {
		form.Set("username", c.cfg.Username)
		form.Set("apiKey", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, unreachable(fmt.Errorf("%w: %v", ctxErr, err))
		}
		return nil, unreachable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := worker.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		if c.limiter != nil {
			c.limiter.Hold(c.cfg.Endpoint, retryAfter)
		}
		return nil, &ServiceError{Kind: ErrRateLimited, StatusCode: resp.StatusCode, RetryAfter: retryAfter}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ServiceError{
			Kind:       ErrUpstreamStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, unreachable(fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, malformed("response exceeds %d bytes", c.cfg.MaxBodyBytes)
	}

	return body, nil
}

// decodeResponse validates and decodes body, rejecting matches outside text
func decodeResponse(body []byte, text string) (*Response, error) {
	if err := validateResponse(body); err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, malformed("decode JSON: %v", err)
	}

	units := utf16Len(text)
	for i, m := range resp.Matches {
		if m.Offset < 0 || m.Length < 0 || m.Offset+m.Length > units {
			return nil, malformed("match %d spans [%d,%d) outside text of length %d", i, m.Offset, m.Offset+m.Length, units)
		}
	}

	return &resp, nil
}
