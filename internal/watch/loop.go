package watch

import (
	"context"
	"path/filepath"
	"time"

	"iiqsort/internal/config"
	"iiqsort/internal/logger"
	"iiqsort/internal/model"
	"iiqsort/internal/pipeline"
	"iiqsort/internal/scan"

	"go.uber.org/zap"
)

// RunFunc performs one full pipeline run.
type RunFunc func(ctx context.Context) (*model.Summary, error)

type Options struct {
	Source     string
	Output     string
	Include    []string
	IgnoreList []string
	Delay      time.Duration
	BufferSize int
}

// Loop runs once at start and again every time the source tree has been
// quiet for opts.Delay after a change. It returns when ctx is done. The
// output root must differ from the source, and changes below it are ignored.
func Loop(ctx context.Context, opts Options, run RunFunc) error {
	src, err := filepath.Abs(opts.Source)
	if err != nil {
		return &config.Error{Field: "source", Err: err}
	}
	out, err := filepath.Abs(opts.Output)
	if err != nil {
		return &config.Error{Field: "output", Err: err}
	}
	if err := config.CheckRoots(src, out); err != nil {
		return err
	}

	w, err := New(scan.Walker{
		Root:    src,
		Include: opts.Include,
		Ignore:  opts.IgnoreList,
		Exclude: []string{out},
	}, opts.BufferSize)
	if err != nil {
		return err
	}
	defer w.Stop()

	runOnce(ctx, run, 0)

	batches := pipeline.Debounce(w.Events(), opts.Delay)
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			runOnce(ctx, run, len(batch))
		}
	}
}

func runOnce(ctx context.Context, run RunFunc, events int) {
	logger.Log.Info("source settled, running",
		zap.Int("events", events))

	sum, err := run(ctx)
	if err != nil {
		logger.Log.Error("run failed", zap.Error(err))
		return
	}

	logger.Log.Info("run complete",
		zap.String("run_id", sum.RunID),
		zap.Int("moved", sum.Counts.Moved),
		zap.Int("skipped", sum.Counts.Skipped),
		zap.Int("failed", sum.Counts.Failed))
}
