package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/baxromumarov/job-harvester/internal/urlutil"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultTimeout   = 5 * time.Second
)

// Fetcher performs a single GET and never returns a Go error: every failure
// is folded into the Outcome.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) Outcome
}

type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	// RateLimit is requests per second per host. Zero disables limiting.
	RateLimit     float64
	RateBurst     int
	RespectRobots bool
}

// CollyFetcher issues one Colly request per call, with an optional
// per-host token bucket in front of it.
type CollyFetcher struct {
	userAgent     string
	timeout       time.Duration
	respectRobots bool

	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
	hosts        map[string]*rate.Limiter
}

func NewCollyFetcher(cfg FetcherConfig) *CollyFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &CollyFetcher{
		userAgent:     cfg.UserAgent,
		timeout:       cfg.Timeout,
		respectRobots: cfg.RespectRobots,
		defaultRate:   limit,
		defaultBurst:  cfg.RateBurst,
		hosts:         make(map[string]*rate.Limiter),
	}
}

func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return failure(rawURL, 0, err)
	}
	if err := ctx.Err(); err != nil {
		return failure(target, 0, err)
	}
	if err := f.limiter(urlutil.Host(target)).Wait(ctx); err != nil {
		return failure(target, 0, err)
	}

	status, body, err := f.fetchOnce(ctx, target)
	if err != nil || !isSuccess(status) {
		return failure(target, status, err)
	}
	return success(target, status, body)
}

func (f *CollyFetcher) fetchOnce(ctx context.Context, target string) (int, []byte, error) {
	c := f.newCollector(ctx)

	status := 0
	var body []byte
	var reqErr error
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			status = r.StatusCode
		}
		reqErr = err
	})

	if err := c.Request(http.MethodGet, target, nil, nil, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return status, nil, ctxErr
		}
		return status, nil, err
	}
	if reqErr != nil {
		return status, nil, reqErr
	}
	return status, body, nil
}

func (f *CollyFetcher) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.StdlibContext(ctx),
	)
	c.IgnoreRobotsTxt = !f.respectRobots
	// Status handling happens here, not in Colly: any 2xx is a success.
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(f.timeout)
	return c
}

func (f *CollyFetcher) limiter(host string) *rate.Limiter {
	if host == "" {
		host = "default"
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.hosts[host]; ok {
		return l
	}
	l := rate.NewLimiter(f.defaultRate, f.defaultBurst)
	f.hosts[host] = l
	return l
}

func normalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
