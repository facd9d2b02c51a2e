package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"iiqsort/internal/config"
	"iiqsort/internal/executor"
	"iiqsort/internal/grammar"
	"iiqsort/internal/logger"
	"iiqsort/internal/pipeline"
	"iiqsort/internal/report"
	"iiqsort/internal/scan"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	runJSON          bool
	runShowPlan      bool
	runSourcePattern string
)

var runCmd = &cobra.Command{
	Use:   "run [source] [output]",
	Short: "Group, plan and relocate all IIQ files once",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		if err := applyFlags(cmd.Flags(), cfg); err != nil {
			return err
		}

		src, err := resolveSource(args[0], runSourcePattern)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := newRunner(cfg)
		sum, err := runner.Run(ctx, src, args[1])
		if err != nil {
			return err
		}

		if runJSON {
			if err := report.JSON(os.Stdout, sum); err != nil {
				return err
			}
		} else {
			if runShowPlan || sum.DryRun {
				report.Plans(os.Stdout, sum)
			}
			report.Summary(os.Stdout, sum)
		}

		if n := sum.Incomplete(); n > 0 {
			return fmt.Errorf("%d file(s) failed, %d source entries unreadable", sum.Counts.Failed, sum.Counts.Unreadable)
		}
		return nil
	},
}

func newRunner(c *config.Config) *pipeline.Runner {
	if repo := historyRepo(); repo != nil {
		return pipeline.NewRunner(c, executor.FSMover{}, repo)
	}
	return pipeline.NewRunner(c, executor.FSMover{}, nil)
}

func resolveSource(base, pattern string) (string, error) {
	if pattern == "" {
		return base, nil
	}
	dir, err := scan.FindDir(base, pattern)
	if err != nil {
		return "", &config.Error{Field: "source-pattern", Err: err}
	}
	return dir, nil
}

// addPipelineFlags registers the flags shared by run and watch.
func addPipelineFlags(fs *pflag.FlagSet) {
	fs.Bool("dry-run", false, "plan only, do not touch any file")
	fs.Bool("copy", false, "copy files instead of moving them")
	fs.Bool("overwrite", false, "replace files that already exist at the destination")
	fs.Duration("tolerance", config.Default.Tolerance, "maximum gap between captures of one session")
	fs.String("grammar", config.Default.Grammar, "filename grammar preset")
	fs.String("dir-pattern", config.Default.DirPattern, "session directory pattern")
	fs.String("file-pattern", config.Default.FilePattern, "destination filename pattern")
	fs.String("unmatched", config.Default.Unmatched, "what to do with unrecognised files: skip or isolate")
	fs.String("empty-files", config.Default.EmptyFiles, "what to do with zero-byte files: keep, skip or isolate")
	fs.StringVar(&runSourcePattern, "source-pattern", "", "pick the single subdirectory of source matching this glob")
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(fs *pflag.FlagSet, c *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}

	set("dry-run", func() (e error) { c.DryRun, e = fs.GetBool("dry-run"); return })
	set("overwrite", func() (e error) { c.Overwrite, e = fs.GetBool("overwrite"); return })
	set("copy", func() error {
		copyMode, e := fs.GetBool("copy")
		if copyMode {
			c.Mode = config.ModeCopy
		} else {
			c.Mode = config.ModeMove
		}
		return e
	})
	set("tolerance", func() (e error) { c.Tolerance, e = fs.GetDuration("tolerance"); return })
	set("grammar", func() (e error) {
		c.Grammar, e = fs.GetString("grammar")
		c.GrammarSpec = grammar.Spec{}
		return
	})
	set("dir-pattern", func() (e error) { c.DirPattern, e = fs.GetString("dir-pattern"); return })
	set("file-pattern", func() (e error) { c.FilePattern, e = fs.GetString("file-pattern"); return })
	set("unmatched", func() (e error) { c.Unmatched, e = fs.GetString("unmatched"); return })
	set("empty-files", func() (e error) { c.EmptyFiles, e = fs.GetString("empty-files"); return })

	return err
}

func init() {
	addPipelineFlags(runCmd.Flags())
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run summary as JSON")
	runCmd.Flags().BoolVar(&runShowPlan, "plan", false, "print every planned destination")
	rootCmd.AddCommand(runCmd)
}
