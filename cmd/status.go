package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"iiqsort/internal/model"
	"iiqsort/internal/report"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View the API server status and its last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(apiURL("/status"))
		if err != nil {
			return fmt.Errorf("server not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var snap model.RunSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		state := "idle"
		if snap.Running {
			state = "running"
		}
		fmt.Printf("server %s, %d run(s) served\n", state, snap.Runs)

		if snap.Last == nil {
			fmt.Println("no run yet")
			return nil
		}

		report.Summary(os.Stdout, snap.Last)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
