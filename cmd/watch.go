package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iiqsort/internal/config"
	"iiqsort/internal/logger"
	"iiqsort/internal/model"
	"iiqsort/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchDelay time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [source] [output]",
	Short: "Relocate new IIQ files whenever the source tree settles",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		if err := applyFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
		if cmd.Flags().Changed("delay") {
			cfg.WatchDelay = watchDelay
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		src, err := resolveSource(args[0], runSourcePattern)
		if err != nil {
			return err
		}
		dst := args[1]

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := newRunner(cfg)

		logger.Log.Info("watching",
			zap.String("src", src),
			zap.String("dst", dst),
			zap.Duration("delay", cfg.WatchDelay))

		return watch.Loop(ctx, watch.Options{
			Source:     src,
			Output:     dst,
			Include:    cfg.Include,
			IgnoreList: cfg.IgnoreList,
			Delay:      cfg.WatchDelay,
			BufferSize: 1024,
		}, func(ctx context.Context) (*model.Summary, error) {
			return runner.Run(ctx, src, dst)
		})
	},
}

func init() {
	addPipelineFlags(watchCmd.Flags())
	watchCmd.Flags().DurationVar(&watchDelay, "delay", config.Default.WatchDelay, "quiet period before a run")
	rootCmd.AddCommand(watchCmd)
}
