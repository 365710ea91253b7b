package main

import (
	"github.com/spf13/cobra"

	"newsdesk/internal/render"
)

var (
	reportFormat string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report <url>",
	Short: "Research a URL and compile a structured report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "output format: json, md, or html")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write output to file instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	rep, err := runner.Report(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := saveRun(cfg, args[0], rep, nil); err != nil {
		return err
	}
	return emit(rep, func() string { return render.Markdown(rep) }, reportFormat, reportOut)
}
