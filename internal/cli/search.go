package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"marktplaats-watcher/internal/app"
)

var searchTermID int

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one watched term immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchTermID <= 0 {
			return fmt.Errorf("--term-id must be a positive term id")
		}

		return getApp().Search(cmd.Context(), app.SearchOptions{TermID: searchTermID})
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTermID, "term-id", 0, "Id of the watched term to run")
}
