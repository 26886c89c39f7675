package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reloquent/schemair/internal/config"
	"github.com/reloquent/schemair/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the report of the last run",
	Long:  `Read run-report.json from the configured output directory and print it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return showReport(filepath.Join(cfg.Output.Directory, report.FileName))
	},
}

func showReport(path string) error {
	rep, err := report.ReadJSON(path)
	if err != nil {
		return err
	}
	fmt.Print(report.FormatText(rep))
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
