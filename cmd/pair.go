package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"iiqsort/internal/config"
	"iiqsort/internal/logger"
	"iiqsort/internal/report"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	pairJSON     bool
	pairShowPlan bool
)

var pairCmd = &cobra.Command{
	Use:   "pair [base]",
	Short: "Match RGB and NIR captures by timestamp and sort strays in place",
	Long: `pair looks for one left and one right camera directory under base
(C*_RGB and C*_NIR by default), matches every capture with the nearest
capture of the other camera and keeps pairs at most --threshold apart.
Paired captures end up flat in their camera directory; the rest move to its
unmatched directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		if err := applyFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
		if err := applyPairFlags(cmd.Flags(), &cfg.Pair); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sum, err := newRunner(cfg).Pair(ctx, args[0])
		if err != nil {
			return err
		}

		if pairJSON {
			if err := report.JSON(os.Stdout, sum); err != nil {
				return err
			}
		} else {
			if pairShowPlan || sum.DryRun {
				report.Plans(os.Stdout, sum)
			}
			report.Summary(os.Stdout, sum)
			report.Pairing(os.Stdout, sum)
		}

		if n := sum.Incomplete(); n > 0 {
			return fmt.Errorf("%d file(s) failed, %d source entries unreadable", sum.Counts.Failed, sum.Counts.Unreadable)
		}
		return nil
	},
}

func applyPairFlags(fs *pflag.FlagSet, p *config.PairConfig) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}

	set("left", func() (e error) { p.Left, e = fs.GetString("left"); return })
	set("right", func() (e error) { p.Right, e = fs.GetString("right"); return })
	set("threshold", func() (e error) { p.Threshold, e = fs.GetDuration("threshold"); return })

	return err
}

func init() {
	fs := pairCmd.Flags()
	fs.Bool("dry-run", false, "plan only, do not touch any file")
	fs.Bool("overwrite", false, "replace files that already exist at the destination")
	fs.String("unmatched", config.Default.Unmatched, "what to do with unrecognised files: skip or isolate")
	fs.String("empty-files", config.Default.EmptyFiles, "what to do with zero-byte files: keep, skip or isolate")
	fs.String("left", config.Default.Pair.Left, "glob of the left camera directory")
	fs.String("right", config.Default.Pair.Right, "glob of the right camera directory")
	fs.Duration("threshold", config.Default.Pair.Threshold, "maximum gap between the captures of a pair")
	fs.BoolVar(&pairJSON, "json", false, "print the run summary as JSON")
	fs.BoolVar(&pairShowPlan, "plan", false, "print every planned destination")
	rootCmd.AddCommand(pairCmd)
}
