package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baxromumarov/job-harvester/internal/httpx"
	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/scraper"
)

type ExtractorConfig struct {
	Policy      httpx.RetryPolicy
	Concurrency int
}

// Extractor fetches posting detail pages and turns them into records.
type Extractor struct {
	fetcher     Fetcher
	interp      scraper.RecordInterpreter
	policy      httpx.RetryPolicy
	concurrency int
	logger      *slog.Logger
}

type ExtractReport struct {
	Records   []scraper.JobRecord
	Attempted int
	Failed    int
	Failures  Tally
	Duration  time.Duration
}

type recordResult struct {
	link   scraper.JobLink
	record scraper.JobRecord
	err    error
}

func NewExtractor(fetcher Fetcher, interp scraper.RecordInterpreter, cfg ExtractorConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		fetcher:     fetcher,
		interp:      interp,
		policy:      cfg.Policy,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// Extract fetches every link concurrently and writes each record to sink as
// soon as it is ready, so output order follows completion order. Links that
// keep failing produce no record and are counted in the report. ref anchors
// relative posting dates.
func (e *Extractor) Extract(ctx context.Context, links []scraper.JobLink, ref time.Time, sink RecordSink, observe Observer) (*ExtractReport, error) {
	start := time.Now()
	report := &ExtractReport{
		Records:  make([]scraper.JobRecord, 0, len(links)),
		Failures: Tally{},
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan recordResult)
	go func() {
		defer close(results)
		report.Attempted = runPool(runCtx, e.concurrency, len(links), func(ctx context.Context, i int) {
			results <- e.extractOne(ctx, links[i], ref)
		})
	}()

	var sinkErr error
	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			reason := failureReason(res.err)
			report.Failed++
			report.Failures.Add(reason)
			observability.IncError(reason, observability.ComponentExtract)
			e.logger.Warn("job link dropped", "url", res.link, "reason", reason, "error", res.err)
		} else if sinkErr == nil {
			if sink != nil {
				if err := sink.WriteRecord(runCtx, res.record); err != nil {
					sinkErr = fmt.Errorf("write record: %w", err)
					cancel()
				}
			}
			if sinkErr == nil {
				report.Records = append(report.Records, res.record)
				observability.IncRecordsExtracted()
			}
		}
		observe.report(Progress{
			Stage:     StageExtract,
			Completed: completed,
			Total:     len(links),
			Items:     len(report.Records),
			Failed:    report.Failed,
		})
	}

	report.Duration = time.Since(start)
	observability.ObserveRunDuration(string(StageExtract), report.Duration.Seconds())
	e.logger.Info("extract finished",
		"links", len(links),
		"records", len(report.Records),
		"failed", report.Failed,
		"duration", report.Duration,
	)

	if sinkErr != nil {
		return report, sinkErr
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("extract interrupted: %w", err)
	}
	return report, nil
}

func (e *Extractor) extractOne(ctx context.Context, link scraper.JobLink, ref time.Time) recordResult {
	res := recordResult{link: link}
	out := e.fetcher.FetchWithRetry(ctx, string(link), e.policy)
	observability.IncFetch(observability.ComponentExtract, out.OK())
	if !out.OK() {
		res.err = out.Err
		return res
	}
	res.record, res.err = e.interp.ExtractRecord(link, out.Body, ref)
	return res
}
