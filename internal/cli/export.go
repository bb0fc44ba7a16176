package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"marktplaats-watcher/internal/app"
)

var (
	exportTermID    int
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored results as CSV and/or PNG price chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportTermID <= 0 {
			return fmt.Errorf("--term-id must be a positive term id")
		}

		opts := app.ExportOptions{
			TermID:    exportTermID,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportTermID, "term-id", 0, "Id of the watched term")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
