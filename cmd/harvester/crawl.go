package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/job-harvester/internal/app"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Harvest links and extract their records in one run",
	RunE:  runCrawl,
}

var crawlName string

func init() {
	crawlCmd.Flags().StringVar(&crawlName, "name", "", "Output base name (default <keywords>_<timestamp>)")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	ctx, a, cleanup, err := setup(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	req := a.Request(0)
	req.Name = crawlName

	report, err := a.Crawl.Crawl(ctx, req, a.Progress())
	if report != nil && report.Harvest != nil {
		a.Logger.Info("harvest finished",
			"pages", report.Harvest.Pages,
			"pages_failed", report.Harvest.PagesFailed,
			"links", report.Harvest.Links.Len(),
		)
	}
	if err != nil {
		return err
	}
	a.Logger.Info("crawl finished",
		"name", report.Name,
		"records", len(report.Extract.Records),
		"failed", report.Extract.Failed,
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, a.Output.LinksPath(report.Name))
	fmt.Fprintln(out, a.Output.RecordsPath(report.Name))
	return nil
}
