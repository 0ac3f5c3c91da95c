package core

import (
	"context"
	"errors"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/baxromumarov/job-harvester/internal/httpx"
	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/scraper"
)

// Fetcher is the retrying fetch both pipeline stages depend on.
type Fetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string, policy httpx.RetryPolicy) httpx.Outcome
}

type LinkSink interface {
	WriteLink(ctx context.Context, link scraper.JobLink) error
}

type RecordSink interface {
	WriteRecord(ctx context.Context, rec scraper.JobRecord) error
}

type LinkSinkCloser interface {
	LinkSink
	io.Closer
}

type RecordSinkCloser interface {
	RecordSink
	io.Closer
}

type Stage string

const (
	StageHarvest Stage = "harvest"
	StageExtract Stage = "extract"
)

// Progress is reported after every finished unit of work. Items is the
// number of distinct links (harvest) or records written (extract).
type Progress struct {
	Stage     Stage `json:"stage"`
	Completed int   `json:"completed"`
	Total     int   `json:"total"`
	Items     int   `json:"items"`
	Failed    int   `json:"failed"`
}

// Observer receives progress from the goroutine aggregating results; it
// must not block for long.
type Observer func(Progress)

func (o Observer) report(p Progress) {
	if o != nil {
		o(p)
	}
}

// Tally counts dropped units by failure reason.
type Tally map[string]int

func (t Tally) Add(reason string) {
	if reason == "" {
		reason = observability.ErrorUnknown
	}
	t[reason]++
}

// failureReason labels a unit failure for the tally.
func failureReason(err error) string {
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		return string(fe.Reason)
	}
	return observability.ClassifyScrapeError(err)
}

// runPool runs task for every index in [0, n) with at most limit running at
// once and returns when all dispatched tasks are done. Dispatch stops when
// ctx is cancelled.
func runPool(ctx context.Context, limit, n int, task func(ctx context.Context, i int)) int {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(limit)
	dispatched := 0
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		dispatched++
		g.Go(func() error {
			task(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return dispatched
}

type multiLinkSink []LinkSink

func (m multiLinkSink) WriteLink(ctx context.Context, link scraper.JobLink) error {
	for _, s := range m {
		if err := s.WriteLink(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

// TeeLinks writes every link to each non-nil sink in order.
func TeeLinks(sinks ...LinkSink) LinkSink {
	var out multiLinkSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multiRecordSink []RecordSink

func (m multiRecordSink) WriteRecord(ctx context.Context, rec scraper.JobRecord) error {
	for _, s := range m {
		if err := s.WriteRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func TeeRecords(sinks ...RecordSink) RecordSink {
	var out multiRecordSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
