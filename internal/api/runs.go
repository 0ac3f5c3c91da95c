package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baxromumarov/job-harvester/internal/core"
)

// Crawler is the part of core.CrawlService the API drives.
type Crawler interface {
	Crawl(ctx context.Context, req core.CrawlRequest, observe core.Observer) (*core.CrawlReport, error)
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

type Run struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Keywords   string         `json:"keywords"`
	Location   string         `json:"location"`
	Total      int            `json:"total"`
	Status     RunStatus      `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Harvest    core.Progress  `json:"harvest"`
	Extract    core.Progress  `json:"extract"`
	Failures   map[string]int `json:"failures,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Runs tracks crawls started through the API or the scheduler.
type Runs struct {
	crawler Crawler
	now     func() time.Time

	mu   sync.RWMutex
	runs map[string]*Run
	wg   sync.WaitGroup
}

func NewRuns(crawler Crawler) *Runs {
	return &Runs{
		crawler: crawler,
		now:     time.Now,
		runs:    make(map[string]*Run),
	}
}

// Launch starts req in the background and returns the run ID.
func (r *Runs) Launch(ctx context.Context, req core.CrawlRequest) string {
	run := r.register(req)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(ctx, run.ID, req)
	}()
	return run.ID
}

// Execute runs req to completion and returns the final state.
func (r *Runs) Execute(ctx context.Context, req core.CrawlRequest) Run {
	run := r.register(req)
	r.execute(ctx, run.ID, req)
	snapshot, _ := r.Get(run.ID)
	return snapshot
}

// Wait blocks until every launched run has returned.
func (r *Runs) Wait() {
	r.wg.Wait()
}

func (r *Runs) Get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return copyRun(run), true
}

// List returns all runs, newest first.
func (r *Runs) List() []Run {
	r.mu.RLock()
	out := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, copyRun(run))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (r *Runs) register(req core.CrawlRequest) *Run {
	id := uuid.NewString()
	started := r.now()
	run := &Run{
		ID:        id,
		Name:      req.Name,
		Keywords:  req.Query.Keywords,
		Location:  req.Query.Location,
		Total:     req.Total,
		Status:    RunRunning,
		StartedAt: started,
	}
	if run.Name == "" {
		run.Name = core.OutputName(req.Query.Keywords, started) + "_" + id[:8]
	}
	r.mu.Lock()
	r.runs[id] = run
	r.mu.Unlock()
	return run
}

func (r *Runs) execute(ctx context.Context, id string, req core.CrawlRequest) {
	r.mu.RLock()
	req.Name = r.runs[id].Name
	r.mu.RUnlock()

	report, err := r.crawler.Crawl(ctx, req, func(p core.Progress) {
		r.mu.Lock()
		defer r.mu.Unlock()
		run := r.runs[id]
		switch p.Stage {
		case core.StageHarvest:
			run.Harvest = p
		case core.StageExtract:
			run.Extract = p
		}
	})

	finished := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.runs[id]
	run.FinishedAt = &finished
	run.Failures = map[string]int{}
	if report != nil {
		if report.Harvest != nil {
			for k, v := range report.Harvest.Failures {
				run.Failures["harvest_"+k] += v
			}
		}
		if report.Extract != nil {
			for k, v := range report.Extract.Failures {
				run.Failures["extract_"+k] += v
			}
		}
	}
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		return
	}
	run.Status = RunSucceeded
}

func copyRun(run *Run) Run {
	out := *run
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		out.FinishedAt = &t
	}
	if run.Failures != nil {
		out.Failures = make(map[string]int, len(run.Failures))
		for k, v := range run.Failures {
			out.Failures[k] = v
		}
	}
	return out
}
