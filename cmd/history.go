package cmd

import (
	"fmt"
	"os"

	"iiqsort/internal/report"

	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyRun    string
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := historyRepo()
		if repo == nil {
			return fmt.Errorf("history is disabled")
		}

		switch {
		case historyRun != "":
			rows, err := repo.GetRun(historyRun)
			if err != nil {
				return err
			}
			report.History(os.Stdout, rows)
		case historyFailed:
			rows, err := repo.GetFailed()
			if err != nil {
				return err
			}
			report.History(os.Stdout, rows)
		default:
			rows, err := repo.GetRecent(historyN)
			if err != nil {
				return err
			}
			report.History(os.Stdout, rows)

			stats, err := repo.GetStats()
			if err != nil {
				return err
			}
			fmt.Printf("\n%d runs, %d files: %d moved, %d skipped, %d failed\n",
				stats.Runs, stats.Total, stats.Moved, stats.Skipped, stats.Failed)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show every entry of one run")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "show failed entries only")
	rootCmd.AddCommand(historyCmd)
}
