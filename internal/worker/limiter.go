package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MaxHold caps how long a single Retry-After can pause a host
const MaxHold = time.Minute

// Limiter paces outbound requests per host, so the grammar service and
// fetched sites each get their own token bucket. A host can also be put on
// hold, e.g. after the grammar service answers 429 with Retry-After.
type Limiter struct {
	mu           sync.Mutex
	buckets      map[string]*rate.Limiter
	holds        map[string]time.Time
	defaultRate  rate.Limit
	defaultBurst int
	now          func() time.Time
}

// NewLimiter creates a limiter with a default per-host rate. A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		buckets:      make(map[string]*rate.Limiter),
		holds:        make(map[string]time.Time),
		defaultRate:  toLimit(requestsPerSecond),
		defaultBurst: burst,
		now:          time.Now,
	}
}

func toLimit(requestsPerSecond float64) rate.Limit {
	if requestsPerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(requestsPerSecond)
}

// SetHostRate gives host its own rate, e.g. the grammar service's published allowance
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.buckets[host] = rate.NewLimiter(toLimit(requestsPerSecond), burst)
}

// Hold blocks requests to rawURL's host for d. A shorter hold never shortens an existing one.
func (l *Limiter) Hold(rawURL string, d time.Duration) {
	host, err := extractHost(rawURL)
	if err != nil || d <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	until := l.now().Add(d)
	if until.After(l.holds[host]) {
		l.holds[host] = until
	}
}

// Wait blocks until rawURL's host may receive another request
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}

	bucket, hold := l.lookup(host)
	if err := Sleep(ctx, hold); err != nil {
		return err
	}
	return bucket.Wait(ctx)
}

// WaitWithDelay waits for the host's turn and then an extra delay (robots.txt crawl-delay)
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}
	return Sleep(ctx, additionalDelay)
}

// lookup returns host's bucket, creating it at the default rate, and the remaining hold
func (l *Limiter) lookup(host string) (*rate.Limiter, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[host]
	if !ok {
		bucket = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.buckets[host] = bucket
	}

	var hold time.Duration
	if until, ok := l.holds[host]; ok {
		hold = until.Sub(l.now())
		if hold <= 0 {
			delete(l.holds, host)
			hold = 0
		}
	}
	return bucket, hold
}

// Sleep pauses for d or until ctx is done, returning ctx.Err() in the latter case
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in URL %q", rawURL)
	}
	return parsed.Host, nil
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP
// date. The result is clamped to [0, MaxHold].
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}

	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	}

	switch {
	case d < 0:
		return 0
	case d > MaxHold:
		return MaxHold
	}
	return d
}
