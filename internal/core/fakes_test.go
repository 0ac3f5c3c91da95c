package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/baxromumarov/job-harvester/internal/httpx"
	"github.com/baxromumarov/job-harvester/internal/scraper"
)

// pageFetcher serves canned bodies by URL and fails anything unknown with
// the configured status.
type pageFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	calls  map[string]int
}

func newPageFetcher() *pageFetcher {
	return &pageFetcher{
		pages:  map[string]string{},
		status: map[string]int{},
		calls:  map[string]int{},
	}
}

func (f *pageFetcher) Fetch(ctx context.Context, rawURL string) httpx.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[rawURL]++
	if err := ctx.Err(); err != nil {
		return httpx.Outcome{URL: rawURL, Err: &httpx.FetchError{URL: rawURL, Reason: httpx.ReasonCanceled, Err: err}}
	}
	if body, ok := f.pages[rawURL]; ok {
		return httpx.Outcome{URL: rawURL, Status: 200, Body: []byte(body)}
	}
	status := f.status[rawURL]
	if status == 0 {
		status = 404
	}
	return httpx.Outcome{URL: rawURL, Status: status, Err: &httpx.FetchError{URL: rawURL, Reason: httpx.ReasonHTTPStatus, Status: status}}
}

func (f *pageFetcher) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func retrying(f httpx.Fetcher) *httpx.RetryingFetcher {
	return httpx.NewRetryingFetcher(f, httpx.WithSleep(noSleep))
}

type memLinks struct {
	mu     sync.Mutex
	links  []scraper.JobLink
	closed bool
	err    error
}

func (m *memLinks) WriteLink(_ context.Context, l scraper.JobLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, l)
	return nil
}

func (m *memLinks) Close() error {
	m.closed = true
	return nil
}

type memRecords struct {
	mu      sync.Mutex
	records []scraper.JobRecord
	closed  bool
}

func (m *memRecords) WriteRecord(_ context.Context, r scraper.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memRecords) Close() error {
	m.closed = true
	return nil
}

type memOutput struct {
	links   map[string]*memLinks
	records map[string]*memRecords
	failOn  string
}

func newMemOutput() *memOutput {
	return &memOutput{links: map[string]*memLinks{}, records: map[string]*memRecords{}}
}

func (o *memOutput) OpenLinks(name string) (LinkSinkCloser, error) {
	if o.failOn == "links" {
		return nil, errors.New("disk full")
	}
	s := &memLinks{}
	o.links[name] = s
	return s, nil
}

func (o *memOutput) OpenRecords(name string) (RecordSinkCloser, error) {
	if o.failOn == "records" {
		return nil, errors.New("disk full")
	}
	s := &memRecords{}
	o.records[name] = s
	return s, nil
}

type memQueue struct {
	mu     sync.Mutex
	seen   map[string]map[scraper.JobLink]bool
	queued map[string][]scraper.JobLink
	drains int
}

func newMemQueue() *memQueue {
	return &memQueue{seen: map[string]map[scraper.JobLink]bool{}, queued: map[string][]scraper.JobLink{}}
}

func (q *memQueue) Push(_ context.Context, run string, links ...scraper.JobLink) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seen[run] == nil {
		q.seen[run] = map[scraper.JobLink]bool{}
	}
	n := 0
	for _, l := range links {
		if q.seen[run][l] {
			continue
		}
		q.seen[run][l] = true
		q.queued[run] = append(q.queued[run], l)
		n++
	}
	return n, nil
}

func (q *memQueue) Drain(_ context.Context, run string) ([]scraper.JobLink, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.drains++
	out := q.queued[run]
	delete(q.queued, run)
	delete(q.seen, run)
	return out, nil
}
