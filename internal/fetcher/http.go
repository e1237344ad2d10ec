package fetcher

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultHostRate is the starting request rate, per second, for hosts
// without an entry in HTTPOptions.HostRates.
const DefaultHostRate rate.Limit = 20

const maxBackoff = 30 * time.Second

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	// HostRates overrides the starting request rate for specific hosts
	// (host[:port] as it appears in the URL).
	HostRates map[string]rate.Limit
}

// DefaultHostRates returns the starting rates for the public boundary mirrors.
func DefaultHostRates() map[string]rate.Limit {
	return map[string]rate.Limit{
		"raw.githubusercontent.com": 5,
		"www2.census.gov":           5,
	}
}

// hostLimiter paces requests to a single host. Each success raises the rate
// by 20% up to twice its start; each 429 halves it down to a quarter.
type hostLimiter struct {
	mu      sync.Mutex
	lim     *rate.Limiter
	start   rate.Limit
	current rate.Limit
}

func newHostLimiter(r rate.Limit) *hostLimiter {
	return &hostLimiter{lim: rate.NewLimiter(r, 1), start: r, current: r}
}

func (h *hostLimiter) wait(ctx context.Context) error {
	return h.lim.Wait(ctx)
}

func (h *hostLimiter) scale(factor float64) rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := min(max(h.current*rate.Limit(factor), h.start/4), h.start*2)
	h.current = next
	h.lim.SetLimit(next)
	return next
}

func (h *hostLimiter) limit() rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// HTTPFetcher implements Fetcher over net/http with per-host pacing and
// retries.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
	rates  map[string]rate.Limit

	mu    sync.Mutex
	hosts map[string]*hostLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geoplot/1.0"
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Second
	}
	rates := DefaultHostRates()
	for host, r := range opts.HostRates {
		rates[host] = r
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:  opts,
		rates: rates,
		hosts: make(map[string]*hostLimiter),
	}
}

// limiter returns the pacing state for host, creating it on first use so
// every request to the same host shares one budget.
func (f *HTTPFetcher) limiter(host string) *hostLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.hosts[host]; ok {
		return h
	}
	r, ok := f.rates[host]
	if !ok {
		r = DefaultHostRate
	}
	h := newHostLimiter(r)
	f.hosts[host] = h
	return h
}

// Download GETs rawURL and returns the response body. Transport errors, 429
// and 5xx responses are retried with jittered exponential backoff (or the
// server's Retry-After hint); any other non-200 status fails immediately.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http: build request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	host := f.limiter(req.URL.Host)
	log := zap.L().With(zap.String("url", rawURL))

	var (
		lastErr error
		hint    time.Duration
	)
	for attempt := range f.opts.MaxRetries {
		if attempt > 0 {
			if err := sleep(ctx, f.backoff(attempt-1, hint)); err != nil {
				return nil, eris.Wrap(err, "http: wait to retry")
			}
		}
		if err := host.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "http: rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "http: request cancelled")
			}
			lastErr, hint = err, 0
			log.Warn("http: request failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			host.scale(1.2)
			return resp.Body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			discard(resp)
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
			hint = retryAfter(resp.Header.Get("Retry-After"))
			if resp.StatusCode == http.StatusTooManyRequests {
				log.Warn("http: rate limited, slowing host",
					zap.Int("attempt", attempt+1),
					zap.Float64("rate", float64(host.scale(0.5))),
				)
				continue
			}
			log.Warn("http: server error", zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
		default:
			discard(resp)
			return nil, eris.Errorf("http: unexpected status %d from %s", resp.StatusCode, rawURL)
		}
	}

	return nil, eris.Wrap(lastErr, "http: all retries exhausted")
}

// backoff returns the delay before retry number attempt+1. A positive hint
// from Retry-After wins over the exponential schedule.
func (f *HTTPFetcher) backoff(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return min(hint, maxBackoff)
	}
	d := f.opts.BackoffBase << min(attempt, 16)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

// retryAfter parses a Retry-After header in either delta-seconds or
// HTTP-date form. Unparseable or past values yield 0.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
