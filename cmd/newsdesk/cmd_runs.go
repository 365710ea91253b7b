package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"newsdesk/internal/config"
	"newsdesk/internal/render"
	"newsdesk/internal/store"
)

var runsFormat string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a persisted report or brief",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsShowCmd.Flags().StringVar(&runsFormat, "format", "md", "output format: json, md, or html")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func openStore() (*store.SqlStore, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	path := cfg.Store.Path
	if path == "" {
		path = store.DefaultDBPath
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListRuns()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no runs stored")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-6s  %s  %s\n", rec.RunID, rec.Kind, rec.CreatedAt, rec.Input)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runID := args[0]
	if rep, err := st.GetReport(runID); err == nil {
		return emit(rep, func() string { return render.Markdown(rep) }, runsFormat, "")
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	br, err := st.GetBrief(runID)
	if err != nil {
		return err
	}
	return emit(br, func() string { return render.BriefMarkdown(br) }, runsFormat, "")
}
