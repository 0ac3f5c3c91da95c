package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/job-harvester/internal/httpx"
	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/search"
)

const testBase = "https://jobs.example.com/jobs/search/"

func resultsPage(hrefs ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><body><ul>")
	for _, h := range hrefs {
		fmt.Fprintf(&sb, `<li><a class="result-card__full-card-link" href="%s">job</a></li>`, h)
	}
	sb.WriteString("</ul></body></html>")
	return sb.String()
}

func newTestHarvester(f httpx.Fetcher, concurrency int) *Harvester {
	return NewHarvester(retrying(f), scraper.NewSearchResultsInterpreter(""), HarvesterConfig{
		BaseURL:     testBase,
		Policy:      httpx.RetryPolicy{MaxAttempts: 5},
		Concurrency: concurrency,
	}, nil)
}

func TestHarvest_DispatchesOneTaskPerPage(t *testing.T) {
	q := search.Query{Keywords: "go", Location: "Remote"}
	f := newPageFetcher()
	for i := 0; i < 3; i++ {
		f.pages[q.Page(i).URL(testBase)] = resultsPage(fmt.Sprintf("https://jobs.example.com/jobs/view/%d", i))
	}
	h := newTestHarvester(f, 2)

	report, err := h.Harvest(context.Background(), q, 60, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 3, report.Dispatched)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1, f.callCount(q.Page(i).URL(testBase)), "page %d", i)
	}
	assert.Equal(t, 3, report.Links.Len())
	assert.Zero(t, report.PagesFailed)
}

func TestHarvest_SameLinkOnTwoPagesCountsOnce(t *testing.T) {
	q := search.Query{Keywords: "go"}
	f := newPageFetcher()
	f.pages[q.Page(0).URL(testBase)] = resultsPage(
		"https://jobs.example.com/jobs/view/1?refId=a&position=1",
		"https://jobs.example.com/jobs/view/2",
	)
	f.pages[q.Page(1).URL(testBase)] = resultsPage(
		"https://jobs.example.com/jobs/view/1?refId=b&position=4",
		"/jobs/view/3",
	)
	sink := &memLinks{}
	var last Progress
	h := newTestHarvester(f, 4)

	report, err := h.Harvest(context.Background(), q, 50, sink, func(p Progress) { last = p })

	require.NoError(t, err)
	assert.Equal(t, []scraper.JobLink{
		"https://jobs.example.com/jobs/view/1",
		"https://jobs.example.com/jobs/view/2",
		"https://jobs.example.com/jobs/view/3",
	}, report.Links.Sorted())
	assert.Len(t, sink.links, 4)
	assert.Contains(t, sink.links, scraper.JobLink("https://jobs.example.com/jobs/view/3"))
	assert.Equal(t, Progress{Stage: StageHarvest, Completed: 2, Total: 2, Items: 3}, last)
}

func TestHarvest_FailingPageIsDroppedAndTallied(t *testing.T) {
	q := search.Query{Keywords: "go"}
	f := newPageFetcher()
	f.pages[q.Page(0).URL(testBase)] = resultsPage("https://jobs.example.com/jobs/view/1")
	f.status[q.Page(1).URL(testBase)] = 503
	h := newTestHarvester(f, 2)

	report, err := h.Harvest(context.Background(), q, 26, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Links.Len())
	assert.Equal(t, 1, report.PagesFailed)
	assert.Equal(t, Tally{"http_status": 1}, report.Failures)
	assert.Equal(t, 6, f.callCount(q.Page(1).URL(testBase)))
}

func TestHarvest_EmptyPagesYieldEmptySet(t *testing.T) {
	q := search.Query{Keywords: "nothing"}
	f := newPageFetcher()
	f.pages[q.Page(0).URL(testBase)] = "<html><body>No matching jobs</body></html>"
	h := newTestHarvester(f, 1)

	report, err := h.Harvest(context.Background(), q, 10, nil, nil)

	require.NoError(t, err)
	assert.Zero(t, report.Links.Len())
	assert.Zero(t, report.PagesFailed)
}

func TestHarvest_RejectsNonPositiveTotal(t *testing.T) {
	h := newTestHarvester(newPageFetcher(), 1)

	_, err := h.Harvest(context.Background(), search.Query{}, 0, nil, nil)
	assert.Error(t, err)

	_, err = h.Harvest(context.Background(), search.Query{PostedWithinDays: -1}, 10, nil, nil)
	assert.Error(t, err)
}

func TestHarvest_SinkFailureIsReturned(t *testing.T) {
	q := search.Query{Keywords: "go"}
	f := newPageFetcher()
	f.pages[q.Page(0).URL(testBase)] = resultsPage("https://jobs.example.com/jobs/view/1")
	h := newTestHarvester(f, 1)

	_, err := h.Harvest(context.Background(), q, 1, &memLinks{err: errors.New("disk full")}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHarvest_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newTestHarvester(newPageFetcher(), 2)

	report, err := h.Harvest(ctx, search.Query{Keywords: "go"}, 100, nil, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Dispatched)
}

func TestLinkSet(t *testing.T) {
	a := NewLinkSet("https://x/jobs/1?trk=a", "https://x/jobs/2")
	b := NewLinkSet("https://x/jobs/2?trackingId=z", "https://x/jobs/3")

	assert.False(t, a.Add("https://x/jobs/1?trk=b"))
	assert.Equal(t, 2, a.Len())
	for _, l := range b.Sorted() {
		a.Add(l)
	}
	assert.Equal(t, []scraper.JobLink{"https://x/jobs/1", "https://x/jobs/2", "https://x/jobs/3"}, a.Sorted())
}
