package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/job-harvester/internal/app"
	"github.com/baxromumarov/job-harvester/internal/core"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Harvest posting links into a link file",
	Long:  "Fetch the search result pages needed for --total links and write every link found to <data-dir>/<keywords>_<timestamp>.txt.",
	RunE:  runLinks,
}

var linksName string

func init() {
	linksCmd.Flags().StringVar(&linksName, "name", "", "Output base name (default <keywords>_<timestamp>)")
	rootCmd.AddCommand(linksCmd)
}

func runLinks(cmd *cobra.Command, _ []string) error {
	ctx, a, cleanup, err := setup(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	req := a.Request(0)
	name := linksName
	if name == "" {
		name = core.OutputName(req.Query.Keywords, time.Now())
	}

	report, err := a.Crawl.HarvestLinks(ctx, req.Query, req.Total, name, a.Progress())
	if err != nil {
		return err
	}

	a.Logger.Info("harvest finished",
		"pages", report.Pages,
		"pages_failed", report.PagesFailed,
		"links", report.Links.Len(),
		"duration", report.Duration,
	)
	fmt.Fprintln(cmd.OutOrStdout(), a.Output.LinksPath(name))
	return nil
}
