package cmd

import (
	"fmt"
	"os"

	"iiqsort/internal/config"
	"iiqsort/internal/db"
	"iiqsort/internal/logger"
	"iiqsort/internal/repository"

	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	cfgFile   string
	debug     bool
	noHistory bool
)

var rootCmd = &cobra.Command{
	Use:           "iiqsort",
	Short:         "Group IIQ captures into sessions and lay them out for import",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		clientCmds := map[string]bool{
			"status": true, "stop": true, "inspect": true,
		}
		if !clientCmds[cmd.Name()] && !noHistory {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return db.Close()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func apiURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", cfg.ServerPort, path)
}

// historyRepo returns nil when history is disabled, which turns recording off.
func historyRepo() *repository.HistoryRepository {
	if !db.Enabled() {
		return nil
	}
	return repository.NewHistoryRepository()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.iiqsort/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "do not record runs in the history database")
}
