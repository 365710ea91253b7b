package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "Research-and-report pipelines over a workflow graph",
	Long: "Newsdesk turns source URLs into structured reports and briefs:\n" +
		"it plans sections, researches them with bounded reflection loops,\n" +
		"clusters multi-source input into themes, and compiles the result.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
