package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/search"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func seededCrawl(t *testing.T, opts ...CrawlOption) (*CrawlService, *memOutput, search.Query) {
	t.Helper()
	q := search.Query{Keywords: "go developer", Location: "Remote"}
	f := newPageFetcher()
	f.pages[q.Page(0).URL(testBase)] = resultsPage("https://x/jobs/1", "https://x/jobs/2?refId=p0")
	f.pages[q.Page(1).URL(testBase)] = resultsPage("https://x/jobs/2?refId=p1")
	f.pages["https://x/jobs/1"] = detailHTML
	f.pages["https://x/jobs/2"] = detailHTML

	out := newMemOutput()
	opts = append([]CrawlOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := NewCrawlService(newTestHarvester(f, 2), newTestExtractor(f), out, opts...)
	return svc, out, q
}

func TestCrawl_LinkStoreGetsNormalizedLinks(t *testing.T) {
	stored := &memLinks{}
	svc, out, q := seededCrawl(t, WithLinkStore(stored))

	_, err := svc.Crawl(context.Background(), CrawlRequest{Query: q, Total: 50, Name: "run"}, nil)

	require.NoError(t, err)
	assert.ElementsMatch(t, []scraper.JobLink{"https://x/jobs/1", "https://x/jobs/2", "https://x/jobs/2"}, stored.links)
	assert.Contains(t, out.links["run"].links, scraper.JobLink("https://x/jobs/2?refId=p1"))
}

func TestCrawl_HarvestThenExtract(t *testing.T) {
	svc, out, q := seededCrawl(t)

	report, err := svc.Crawl(context.Background(), CrawlRequest{Query: q, Total: 50}, nil)

	require.NoError(t, err)
	assert.Equal(t, "go_developer_20240315-103000", report.Name)
	assert.Equal(t, 2, report.Harvest.Links.Len())
	assert.Len(t, report.Extract.Records, 2)

	links := out.links[report.Name]
	records := out.records[report.Name]
	require.NotNil(t, links)
	require.NotNil(t, records)
	assert.True(t, links.closed)
	assert.True(t, records.closed)
	assert.Len(t, links.links, 3)
	assert.Len(t, records.records, 2)
}

func TestCrawl_HandoffThroughQueue(t *testing.T) {
	q := newMemQueue()
	svc, _, query := seededCrawl(t, WithQueue(q))

	report, err := svc.Crawl(context.Background(), CrawlRequest{Query: query, Total: 50, Name: "run"}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, q.drains)
	assert.Len(t, report.Extract.Records, 2)
}

func TestCrawl_OpenLinkSinkFailureAborts(t *testing.T) {
	svc, out, q := seededCrawl(t)
	out.failOn = "links"

	_, err := svc.Crawl(context.Background(), CrawlRequest{Query: q, Total: 10}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "open link sink")
}

func TestCrawl_RecordStoreReceivesRecords(t *testing.T) {
	extra := &memRecords{}
	svc, _, q := seededCrawl(t, WithRecordStore(extra), WithLinkStore(&memLinks{}))

	_, err := svc.Crawl(context.Background(), CrawlRequest{Query: q, Total: 50}, nil)

	require.NoError(t, err)
	assert.Len(t, extra.records, 2)
}

func TestDrainQueue_WithoutQueue(t *testing.T) {
	svc, _, _ := seededCrawl(t)

	_, err := svc.DrainQueue(context.Background(), "run")
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "data_engineer_20240315-103000", OutputName("  data  engineer ", fixedNow))
	assert.Equal(t, "jobs_20240315-103000", OutputName("", fixedNow))
	assert.Equal(t, "c_c++_20240315-103000", OutputName("c/c++", fixedNow))
}
