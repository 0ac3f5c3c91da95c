// Package app assembles the crawl pipeline from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baxromumarov/job-harvester/internal/config"
	"github.com/baxromumarov/job-harvester/internal/core"
	"github.com/baxromumarov/job-harvester/internal/httpx"
	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/store"
)

// App owns the pipeline and its optional backing services.
type App struct {
	Config  *config.Config
	Crawl   *core.CrawlService
	Output  store.FileOutput
	Store   *store.Store
	Redis   *redis.Client
	Queue   *store.LinkQueue
	Logger  *slog.Logger
	fetcher *httpx.CollyFetcher
}

// Options disable backing services a caller does not need even when the
// config names them.
type Options struct {
	SkipStore bool
	SkipQueue bool
	// Migrate applies the embedded schema after connecting to the store.
	Migrate bool
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config: cfg,
		Output: store.FileOutput{Dir: cfg.Crawl.DataDir},
		Logger: logger,
	}

	a.fetcher = httpx.NewCollyFetcher(httpx.FetcherConfig{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       cfg.Fetch.Timeout,
		RateLimit:     cfg.Fetch.RateLimit,
		RateBurst:     cfg.Fetch.RateBurst,
		RespectRobots: cfg.Fetch.RespectRobots,
	})
	policy := cfg.Fetch.RetryPolicy()

	harvester := core.NewHarvester(
		a.retrying(observability.ComponentHarvest),
		scraper.NewSearchResultsInterpreter(scraper.DefaultResultCardSelector),
		core.HarvesterConfig{
			BaseURL:     cfg.Search.BaseURL,
			Policy:      policy,
			Concurrency: cfg.Crawl.Concurrency,
		},
		logger.With("component", observability.ComponentHarvest),
	)
	extractor := core.NewExtractor(
		a.retrying(observability.ComponentExtract),
		scraper.NewDetailPageInterpreter(scraper.DefaultDetailSelectors()),
		core.ExtractorConfig{
			Policy:      policy,
			Concurrency: cfg.Crawl.Concurrency,
		},
		logger.With("component", observability.ComponentExtract),
	)

	crawlOpts := []core.CrawlOption{core.WithCrawlLogger(logger)}

	if cfg.DatabaseURL != "" && !opts.SkipStore {
		st, err := store.NewStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect store: %w", err)
		}
		a.Store = st
		if opts.Migrate {
			if err := st.RunMigrations(ctx, ""); err != nil {
				a.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		crawlOpts = append(crawlOpts, core.WithLinkStore(st), core.WithRecordStore(st))
		logger.Info("record store enabled")
	}

	if cfg.RedisURL != "" && !opts.SkipQueue {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = rdb
		a.Queue = store.NewLinkQueue(rdb, cfg.QueuePrefix)
		crawlOpts = append(crawlOpts, core.WithQueue(a.Queue))
		logger.Info("redis link queue enabled", "prefix", cfg.QueuePrefix)
	}

	a.Crawl = core.NewCrawlService(harvester, extractor, a.Output, crawlOpts...)
	return a, nil
}

func (a *App) retrying(component string) *httpx.RetryingFetcher {
	return httpx.NewRetryingFetcher(a.fetcher,
		httpx.WithLogger(a.Logger.With("component", component)),
		httpx.WithRetryHook(func(_ int, _ time.Duration, last httpx.Outcome) {
			observability.IncRetry(component, observability.ClassifyFetchError(last.Err))
		}),
	)
}

// Request is the configured search. A non-positive total falls back to
// SEARCH_TOTAL.
func (a *App) Request(total int) core.CrawlRequest {
	if total <= 0 {
		total = a.Config.Search.Total
	}
	return core.CrawlRequest{Query: a.Config.Query(), Total: total}
}

// WithTimeout applies the configured crawl timeout, if any.
func (a *App) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.Config.Crawl.Timeout > 0 {
		return context.WithTimeout(ctx, a.Config.Crawl.Timeout)
	}
	return context.WithCancel(ctx)
}

// BoundedCrawler runs crawls under the configured crawl timeout.
type BoundedCrawler struct {
	app *App
}

func (a *App) Crawler() *BoundedCrawler {
	return &BoundedCrawler{app: a}
}

func (b *BoundedCrawler) Crawl(ctx context.Context, req core.CrawlRequest, observe core.Observer) (*core.CrawlReport, error) {
	ctx, cancel := b.app.WithTimeout(ctx)
	defer cancel()
	return b.app.Crawl.Crawl(ctx, req, observe)
}

// Progress logs stage progress at debug level.
func (a *App) Progress() core.Observer {
	return func(p core.Progress) {
		a.Logger.Debug("progress",
			"stage", p.Stage,
			"completed", p.Completed,
			"total", p.Total,
			"items", p.Items,
			"failed", p.Failed,
		)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
