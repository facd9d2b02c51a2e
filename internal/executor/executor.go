package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"iiqsort/internal/logger"
	"iiqsort/internal/model"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const LockName = ".iiqsort.lock"

type Mode string

const (
	ModeMove Mode = "move"
	ModeCopy Mode = "copy"
)

// ErrLocked is returned when another run holds the output root.
var ErrLocked = errors.New("output root is locked by another run")

type Options struct {
	OutputRoot string
	Mode       Mode
	Overwrite  bool
	DryRun     bool
}

type Executor struct {
	mover Mover
	opts  Options
}

func New(mover Mover, opts Options) *Executor {
	if opts.Mode == "" {
		opts.Mode = ModeMove
	}
	return &Executor{mover: mover, opts: opts}
}

// Execute runs every plan and adds one outcome per plan to sum. Per-file
// failures never stop the batch; the returned error only reports that the
// output root could not be prepared or locked. After ctx is cancelled the
// remaining plans are skipped.
func (e *Executor) Execute(ctx context.Context, plans []model.MovePlan, sum *model.Summary) error {
	if e.opts.DryRun {
		for _, p := range plans {
			sum.Add(model.Outcome{Plan: p, Kind: model.OutcomePlanned})
		}
		return nil
	}

	unlock, err := e.lock()
	if err != nil {
		return err
	}
	defer unlock()

	for _, p := range plans {
		if ctx.Err() != nil {
			sum.Add(model.Outcome{Plan: p, Kind: model.OutcomeSkipped, Reason: model.SkipInterrupted})
			continue
		}

		o := e.executeOne(p)
		e.log(o)
		sum.Add(o)
	}

	return nil
}

func (e *Executor) executeOne(p model.MovePlan) model.Outcome {
	exists, err := e.mover.Exists(p.Dst)
	if err != nil {
		return model.Outcome{Plan: p, Kind: model.OutcomeFailed, Reason: "stat destination", Err: err}
	}
	if exists && !e.opts.Overwrite {
		return model.Outcome{Plan: p, Kind: model.OutcomeSkipped, Reason: model.SkipDestinationExists}
	}

	switch e.opts.Mode {
	case ModeCopy:
		err = e.mover.Copy(p.Src, p.Dst)
	default:
		err = e.mover.Move(p.Src, p.Dst)
	}
	if err != nil {
		return model.Outcome{Plan: p, Kind: model.OutcomeFailed, Reason: string(e.opts.Mode), Err: err}
	}

	return model.Outcome{Plan: p, Kind: model.OutcomeMoved}
}

func (e *Executor) lock() (func(), error) {
	if err := os.MkdirAll(e.opts.OutputRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}

	lockPath := filepath.Join(e.opts.OutputRoot, LockName)
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Log.Warn("failed to release lock",
				zap.String("lock", lockPath),
				zap.Error(err))
		}
	}, nil
}

func (e *Executor) log(o model.Outcome) {
	switch o.Kind {
	case model.OutcomeFailed:
		logger.Log.Error("relocation failed",
			zap.String("src", o.Plan.Src),
			zap.String("dst", o.Plan.Dst),
			zap.String("mode", string(e.opts.Mode)),
			zap.Error(o.Err))
	case model.OutcomeSkipped:
		logger.Log.Info("skipped",
			zap.String("src", o.Plan.Src),
			zap.String("dst", o.Plan.Dst),
			zap.String("reason", o.Reason))
	default:
		logger.Log.Debug("relocated",
			zap.String("src", o.Plan.Src),
			zap.String("dst", o.Plan.Dst),
			zap.String("mode", string(e.opts.Mode)))
	}
}
