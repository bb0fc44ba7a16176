package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"marktplaats-watcher/internal/app"
)

var (
	showTermID int
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display stored results for a watched term",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showTermID <= 0 {
			return fmt.Errorf("--term-id must be a positive term id")
		}
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			TermID: showTermID,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showTermID, "term-id", 0, "Id of the watched term")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of results to display")
}
