// Package main is the command line entry point for harvesting job postings.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/job-harvester/internal/app"
	"github.com/baxromumarov/job-harvester/internal/config"
	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/search"
)

var rootCmd = &cobra.Command{
	Use:           "harvester",
	Short:         "Harvest job posting links and records from a job search",
	Long:          "harvester walks the result pages of a job search, collects the posting links and extracts a structured record from every posting page.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagKeywords string
	flagLocation string
	flagJobTypes string
	flagDays     int
	flagTotal    int
	flagDataDir  string
	flagNoStore  bool
	flagNoQueue  bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagKeywords, "keywords", "k", "", "Search keywords (overrides SEARCH_KEYWORDS)")
	pf.StringVarP(&flagLocation, "location", "l", "", "Search location (overrides SEARCH_LOCATION)")
	pf.StringVar(&flagJobTypes, "job-types", "", "Comma separated job types, e.g. F,C or full-time,contract")
	pf.IntVar(&flagDays, "days", -1, "Only postings from the last N days (0 for any time)")
	pf.IntVarP(&flagTotal, "total", "n", 0, "Number of links to aim for")
	pf.StringVar(&flagDataDir, "data-dir", "", "Directory for link and record files (overrides CRAWL_DATA_DIR)")
	pf.BoolVar(&flagNoStore, "no-store", false, "Do not write to DATABASE_URL even when set")
	pf.BoolVar(&flagNoQueue, "no-queue", false, "Do not use REDIS_URL even when set")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("keywords") {
		cfg.Search.Keywords = flagKeywords
	}
	if flags.Changed("location") {
		cfg.Search.Location = flagLocation
	}
	if flags.Changed("job-types") {
		types, err := search.ParseJobTypes(flagJobTypes)
		if err != nil {
			return nil, fmt.Errorf("--job-types: %w", err)
		}
		cfg.Search.JobTypes = types
	}
	if flags.Changed("days") {
		cfg.Search.PostedWithinDays = flagDays
	}
	if flags.Changed("total") {
		cfg.Search.Total = flagTotal
	}
	if flags.Changed("data-dir") {
		cfg.Crawl.DataDir = flagDataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup builds the pipeline and a context canceled on SIGINT/SIGTERM or
// when CRAWL_TIMEOUT elapses.
func setup(cmd *cobra.Command, opts app.Options) (context.Context, *app.App, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)

	opts.SkipStore = opts.SkipStore || flagNoStore
	opts.SkipQueue = opts.SkipQueue || flagNoQueue
	a, err := app.New(sigCtx, cfg, logger, opts)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}

	ctx, cancel := a.WithTimeout(sigCtx)
	cleanup := func() {
		cancel()
		stop()
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	return ctx, a, cleanup, nil
}
