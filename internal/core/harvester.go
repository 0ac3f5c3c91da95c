package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baxromumarov/job-harvester/internal/httpx"
	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/search"
	"github.com/baxromumarov/job-harvester/internal/urlutil"
)

type HarvesterConfig struct {
	BaseURL     string
	Policy      httpx.RetryPolicy
	Concurrency int
}

// Harvester walks the search result pages of a query and collects the
// posting links they list.
type Harvester struct {
	fetcher     Fetcher
	interp      scraper.LinkInterpreter
	baseURL     string
	policy      httpx.RetryPolicy
	concurrency int
	logger      *slog.Logger
}

type HarvestReport struct {
	Links       *LinkSet
	Pages       int
	Dispatched  int
	PagesFailed int
	Failures    Tally
	Duration    time.Duration
}

type pageResult struct {
	index int
	url   string
	links []scraper.JobLink
	err   error
}

func NewHarvester(fetcher Fetcher, interp scraper.LinkInterpreter, cfg HarvesterConfig, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = search.DefaultBaseURL
	}
	return &Harvester{
		fetcher:     fetcher,
		interp:      interp,
		baseURL:     cfg.BaseURL,
		policy:      cfg.Policy,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// Harvest fetches ceil(totalDesired/25) search pages concurrently and merges
// their links. Every link of every page is written to sink as it arrives;
// the returned set holds each posting once. Pages that keep failing are
// dropped and counted in the report. An error is returned only for invalid
// input, a failing sink or cancellation of ctx.
func (h *Harvester) Harvest(ctx context.Context, q search.Query, totalDesired int, sink LinkSink, observe Observer) (*HarvestReport, error) {
	if totalDesired <= 0 {
		return nil, fmt.Errorf("total desired must be positive, got %d", totalDesired)
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	start := time.Now()
	report := &HarvestReport{
		Links:    NewLinkSet(),
		Pages:    search.PageCount(totalDesired),
		Failures: Tally{},
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan pageResult)
	go func() {
		defer close(results)
		report.Dispatched = runPool(runCtx, h.concurrency, report.Pages, func(ctx context.Context, i int) {
			results <- h.harvestPage(ctx, q.Page(i))
		})
	}()

	var sinkErr error
	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			reason := failureReason(res.err)
			report.PagesFailed++
			report.Failures.Add(reason)
			observability.IncError(reason, observability.ComponentHarvest)
			h.logger.Warn("search page dropped", "page", res.index, "url", res.url, "reason", reason, "error", res.err)
		} else {
			added := 0
			for _, raw := range res.links {
				link := h.resolve(res.url, raw)
				if sink != nil && sinkErr == nil {
					if err := sink.WriteLink(runCtx, link); err != nil {
						sinkErr = fmt.Errorf("write link: %w", err)
						cancel()
					}
				}
				if report.Links.Add(link) {
					added++
				}
			}
			observability.AddLinksDiscovered(added)
			h.logger.Debug("search page harvested", "page", res.index, "links", len(res.links), "new", added)
		}
		observe.report(Progress{
			Stage:     StageHarvest,
			Completed: completed,
			Total:     report.Pages,
			Items:     report.Links.Len(),
			Failed:    report.PagesFailed,
		})
	}

	report.Duration = time.Since(start)
	observability.ObserveRunDuration(string(StageHarvest), report.Duration.Seconds())
	h.logger.Info("harvest finished",
		"keywords", q.Keywords,
		"pages", report.Pages,
		"pages_failed", report.PagesFailed,
		"links", report.Links.Len(),
		"duration", report.Duration,
	)

	if sinkErr != nil {
		return report, sinkErr
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("harvest interrupted: %w", err)
	}
	return report, nil
}

func (h *Harvester) harvestPage(ctx context.Context, q search.Query) pageResult {
	target := q.URL(h.baseURL)
	res := pageResult{index: q.PageIndex, url: target}

	out := h.fetcher.FetchWithRetry(ctx, target, h.policy)
	observability.IncFetch(observability.ComponentHarvest, out.OK())
	if !out.OK() {
		res.err = out.Err
		return res
	}
	res.links, res.err = h.interp.ExtractLinks(out.Body)
	return res
}

func (h *Harvester) resolve(pageURL string, raw scraper.JobLink) scraper.JobLink {
	abs, err := urlutil.Resolve(pageURL, string(raw))
	if err != nil {
		return raw
	}
	return scraper.JobLink(abs)
}
