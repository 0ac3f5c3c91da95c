package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/search"
)

// Output opens the per-run link and record streams.
type Output interface {
	OpenLinks(name string) (LinkSinkCloser, error)
	OpenRecords(name string) (RecordSinkCloser, error)
}

// LinkQueue hands harvested links over to extraction, keyed by run name.
type LinkQueue interface {
	Push(ctx context.Context, run string, links ...scraper.JobLink) (int, error)
	Drain(ctx context.Context, run string) ([]scraper.JobLink, error)
}

type CrawlRequest struct {
	Query search.Query
	Total int
	// Name is the base name of the output streams. Empty derives one from
	// the keywords and the start time.
	Name string
}

type CrawlReport struct {
	Name    string
	Harvest *HarvestReport
	Extract *ExtractReport
}

type CrawlService struct {
	harvester *Harvester
	extractor *Extractor
	output    Output
	queue     LinkQueue
	links     LinkSink
	records   RecordSink
	now       func() time.Time
	logger    *slog.Logger
}

type CrawlOption func(*CrawlService)

// WithQueue routes the harvest-to-extract handoff through q.
func WithQueue(q LinkQueue) CrawlOption {
	return func(s *CrawlService) { s.queue = q }
}

// WithLinkStore also writes harvested links to sink.
func WithLinkStore(sink LinkSink) CrawlOption {
	return func(s *CrawlService) { s.links = sink }
}

// WithRecordStore also writes extracted records to sink.
func WithRecordStore(sink RecordSink) CrawlOption {
	return func(s *CrawlService) { s.records = sink }
}

func WithClock(now func() time.Time) CrawlOption {
	return func(s *CrawlService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithCrawlLogger(logger *slog.Logger) CrawlOption {
	return func(s *CrawlService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewCrawlService(h *Harvester, e *Extractor, output Output, opts ...CrawlOption) *CrawlService {
	s := &CrawlService{
		harvester: h,
		extractor: e,
		output:    output,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OutputName builds "<keywords>_<YYYYMMDD-HHMMSS>".
func OutputName(keywords string, t time.Time) string {
	base := strings.Join(strings.Fields(keywords), "_")
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = "jobs"
	}
	return base + "_" + t.Format("20060102-150405")
}

// Crawl runs a harvest and then extracts every harvested link.
func (s *CrawlService) Crawl(ctx context.Context, req CrawlRequest, observe Observer) (*CrawlReport, error) {
	name := req.Name
	if name == "" {
		name = OutputName(req.Query.Keywords, s.now())
	}
	report := &CrawlReport{Name: name}

	hr, err := s.HarvestLinks(ctx, req.Query, req.Total, name, observe)
	report.Harvest = hr
	if err != nil {
		return report, err
	}

	links, err := s.handoff(ctx, name, hr)
	if err != nil {
		return report, err
	}

	er, err := s.ExtractLinks(ctx, links, name, observe)
	report.Extract = er
	return report, err
}

// HarvestLinks harvests into the named link stream, which is open only for
// the duration of the call.
func (s *CrawlService) HarvestLinks(ctx context.Context, q search.Query, total int, name string, observe Observer) (report *HarvestReport, err error) {
	sink, err := s.output.OpenLinks(name)
	if err != nil {
		return nil, fmt.Errorf("open link sink: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close link sink: %w", cerr))
		}
	}()

	var stored, queued LinkSink
	if s.links != nil {
		stored = normalizedSink{sink: s.links}
	}
	if s.queue != nil {
		queued = queueSink{queue: s.queue, run: name}
	}
	return s.harvester.Harvest(ctx, q, total, TeeLinks(sink, stored, queued), observe)
}

// ExtractLinks extracts records for links into the named record stream.
// Posting dates are resolved against the current time.
func (s *CrawlService) ExtractLinks(ctx context.Context, links []scraper.JobLink, name string, observe Observer) (report *ExtractReport, err error) {
	sink, err := s.output.OpenRecords(name)
	if err != nil {
		return nil, fmt.Errorf("open record sink: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close record sink: %w", cerr))
		}
	}()

	return s.extractor.Extract(ctx, links, s.now(), TeeRecords(sink, s.records), observe)
}

// DrainQueue returns the links queued for run.
func (s *CrawlService) DrainQueue(ctx context.Context, run string) ([]scraper.JobLink, error) {
	if s.queue == nil {
		return nil, errors.New("no link queue configured")
	}
	return s.queue.Drain(ctx, run)
}

func (s *CrawlService) handoff(ctx context.Context, name string, hr *HarvestReport) ([]scraper.JobLink, error) {
	if s.queue == nil {
		return hr.Links.Sorted(), nil
	}
	links, err := s.queue.Drain(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("drain link queue: %w", err)
	}
	s.logger.Info("links handed off through queue", "run", name, "links", len(links))
	return links, nil
}

// normalizedSink writes the identity form of each link so that tracking
// variants of one posting collapse in the store.
type normalizedSink struct {
	sink LinkSink
}

func (n normalizedSink) WriteLink(ctx context.Context, link scraper.JobLink) error {
	return n.sink.WriteLink(ctx, scraper.JobLink(identity(link)))
}

type queueSink struct {
	queue LinkQueue
	run   string
}

func (q queueSink) WriteLink(ctx context.Context, link scraper.JobLink) error {
	_, err := q.queue.Push(ctx, q.run, scraper.JobLink(identity(link)))
	return err
}
