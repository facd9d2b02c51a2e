package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"iiqsort/internal/config"
	"iiqsort/internal/logger"
	"iiqsort/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API for triggering runs and reading history",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		if cmd.Flags().Changed("port") {
			cfg.ServerPort = servePort
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		srv := server.New(cfg, newRunner, cfg.ServerPort)
		srv.Start()

		logger.Log.Info("iiqsort api ready",
			zap.Int("port", cfg.ServerPort))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("shutting down",
				zap.String("signal", sig.String()))
		case <-srv.StopCh():
			logger.Log.Info("stop requested via API")
		}

		ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.Default.ServerPort, "listen port")
	rootCmd.AddCommand(serveCmd)
}
