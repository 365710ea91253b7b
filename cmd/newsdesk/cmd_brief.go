package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"newsdesk/internal/render"
)

var (
	briefFormat    string
	briefOut       string
	briefInterests []string
)

var briefCmd = &cobra.Command{
	Use:   "brief <url> [url...]",
	Short: "Cluster source URLs into themes and compile a ranked brief",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBrief,
}

func init() {
	briefCmd.Flags().StringVar(&briefFormat, "format", "md", "output format: json, md, or html")
	briefCmd.Flags().StringVarP(&briefOut, "out", "o", "", "write output to file instead of stdout")
	briefCmd.Flags().StringArrayVar(&briefInterests, "interest", nil, "category weight as name=value, repeatable (overrides config)")
}

func runBrief(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	weights := cfg.Run.InterestWeights
	if len(briefInterests) > 0 {
		weights, err = parseInterests(briefInterests)
		if err != nil {
			return err
		}
	}

	br, err := runner.Brief(cmd.Context(), args, weights)
	if err != nil {
		return err
	}
	if err := saveRun(cfg, strings.Join(args, " "), nil, br); err != nil {
		return err
	}
	return emit(br, func() string { return render.BriefMarkdown(br) }, briefFormat, briefOut)
}

func parseInterests(pairs []string) (map[string]float64, error) {
	weights := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid interest %q, want name=value", pair)
		}
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid interest weight %q: %w", pair, err)
		}
		weights[strings.TrimSpace(name)] = w
	}
	return weights, nil
}
