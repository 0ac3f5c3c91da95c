package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// TriggerFunc starts one scheduled crawl and blocks until it finishes.
type TriggerFunc func(ctx context.Context, req CrawlRequest)

// SchedulerService re-runs a fixed crawl request on a cron spec such as
// "@every 6h" or "0 */6 * * *". Overlapping ticks are skipped.
type SchedulerService struct {
	cron    *cron.Cron
	spec    string
	req     CrawlRequest
	trigger TriggerFunc
	logger  *slog.Logger
}

func NewSchedulerService(spec string, req CrawlRequest, trigger TriggerFunc, logger *slog.Logger) *SchedulerService {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		spec:    spec,
		req:     req,
		trigger: trigger,
		logger:  logger,
	}
}

func (s *SchedulerService) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Info("crawl scheduler started", "spec", s.spec, "keywords", s.req.Query.Keywords)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running crawl to return.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

func (s *SchedulerService) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("scheduled crawl started", "keywords", s.req.Query.Keywords, "total", s.req.Total)
	s.trigger(ctx, s.req)
}
