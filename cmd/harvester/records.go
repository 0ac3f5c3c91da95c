package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/job-harvester/internal/app"
	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/store"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Extract records for previously harvested links",
	Long:  "Read links from a link file (--links-file) or a Redis run queue (--from-queue), fetch every posting and write the records as JSON lines.",
	RunE:  runRecords,
}

var (
	recordsLinksFile string
	recordsFromQueue string
	recordsName      string
)

func init() {
	recordsCmd.Flags().StringVarP(&recordsLinksFile, "links-file", "f", "", "Link file written by the links command")
	recordsCmd.Flags().StringVar(&recordsFromQueue, "from-queue", "", "Run name whose queued links should be drained from Redis")
	recordsCmd.Flags().StringVar(&recordsName, "name", "", "Output base name (default derived from the input)")
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, _ []string) error {
	if (recordsLinksFile == "") == (recordsFromQueue == "") {
		return errors.New("exactly one of --links-file or --from-queue is required")
	}

	ctx, a, cleanup, err := setup(cmd, app.Options{SkipQueue: recordsFromQueue == ""})
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		links []scraper.JobLink
		name  = recordsName
	)
	if recordsLinksFile != "" {
		links, err = store.ReadLinkFile(recordsLinksFile)
		if err != nil {
			return err
		}
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(recordsLinksFile), filepath.Ext(recordsLinksFile))
		}
	} else {
		if a.Queue != nil {
			if pending, err := a.Queue.Len(ctx, recordsFromQueue); err == nil {
				a.Logger.Info("draining link queue", "run", recordsFromQueue, "pending", pending)
			}
		}
		links, err = a.Crawl.DrainQueue(ctx, recordsFromQueue)
		if err != nil {
			return err
		}
		if name == "" {
			name = recordsFromQueue
		}
	}
	a.Logger.Info("extracting records", "links", len(links), "name", name)

	report, err := a.Crawl.ExtractLinks(ctx, links, name, a.Progress())
	if err != nil {
		return err
	}

	a.Logger.Info("extraction finished",
		"attempted", report.Attempted,
		"records", len(report.Records),
		"failed", report.Failed,
		"duration", report.Duration,
	)
	fmt.Fprintln(cmd.OutOrStdout(), a.Output.RecordsPath(name))
	return nil
}
