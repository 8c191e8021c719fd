package main

import (
	"github.com/spf13/cobra"

	"github.com/labsight/labsight/internal/api"
	"github.com/labsight/labsight/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "labsight",
	Short: "Biomarker extraction from lab reports and food photos",
	Long: `Labsight extracts structured biomarker values from blood test report
PDFs and nutritional values from food photos using a vision model.

The pipeline includes:
  - Document acquisition with size and type limits
  - PDF page rendering via poppler
  - Per-page vision model extraction with bounded concurrency
  - Reconciliation against a requested biomarker list with alias matching`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.labsight/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
