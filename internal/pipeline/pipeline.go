package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"iiqsort/internal/config"
	"iiqsort/internal/executor"
	"iiqsort/internal/group"
	"iiqsort/internal/logger"
	"iiqsort/internal/model"
	"iiqsort/internal/planner"
	"iiqsort/internal/scan"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reasonEmptyFile = "empty file"

// Recorder stores finished runs. *repository.HistoryRepository satisfies it.
type Recorder interface {
	SaveRun(sum *model.Summary) error
}

type Runner struct {
	cfg      *config.Config
	mover    executor.Mover
	recorder Recorder
}

func NewRunner(cfg *config.Config, mover executor.Mover, recorder Recorder) *Runner {
	if mover == nil {
		mover = executor.FSMover{}
	}
	return &Runner{cfg: cfg, mover: mover, recorder: recorder}
}

// Run enumerates source, groups and plans every file and relocates it under
// output. Only configuration problems and planner conflicts are returned as
// errors; everything that happens to single files ends up in the summary.
func (r *Runner) Run(ctx context.Context, source, output string) (*model.Summary, error) {
	cfg := r.cfg

	src, err := filepath.Abs(source)
	if err != nil {
		return nil, &config.Error{Field: "source", Err: err}
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return nil, &config.Error{Field: "output", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.CheckSource(src); err != nil {
		return nil, err
	}
	if err := config.CheckOutput(out); err != nil {
		return nil, err
	}
	if err := config.CheckRoots(src, out); err != nil {
		return nil, err
	}

	g, err := cfg.BuildGrammar()
	if err != nil {
		return nil, err
	}
	grouper, err := group.New(cfg.Tolerance)
	if err != nil {
		return nil, &config.Error{Field: "tolerance", Err: err}
	}
	plan, err := planner.New(planner.Options{
		OutputRoot:   out,
		DirPattern:   cfg.DirPattern,
		FilePattern:  cfg.FilePattern,
		SuffixSep:    cfg.SuffixSep,
		SuffixStart:  cfg.SuffixStart,
		UnmatchedDir: cfg.UnmatchedDir,
		EmptyDir:     cfg.EmptyDir,
	})
	if err != nil {
		return nil, &config.Error{Field: "pattern", Err: err}
	}

	sum := newSummary(cfg, src, out)

	logger.Log.Info("run started",
		zap.String("run_id", sum.RunID),
		zap.String("src", src),
		zap.String("dst", out),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Duration("tolerance", cfg.Tolerance))

	walker := scan.Walker{
		Root:    src,
		Include: cfg.Include,
		Ignore:  cfg.IgnoreList,
	}
	if isWithin(out, src) {
		walker.Exclude = []string{out}
	}

	var (
		records []model.FileRecord
		loose   []planner.Loose
		skipped []model.MovePlan
	)

	for res := range scan.Enumerate(walker.Walk(), g) {
		if res.Err != nil {
			perr, ok := errors.AsType[*model.ParseError](res.Err)
			if !ok {
				sum.AddWalkError(res.Record.Path, res.Err)
				continue
			}

			sum.ParseErrors = append(sum.ParseErrors, model.Failure{Path: perr.Path, Reason: perr.Error()})
			logger.Log.Warn("unrecognised filename",
				zap.String("path", perr.Path),
				zap.String("kind", string(perr.Kind)))

			switch {
			case perr.Size == 0 && cfg.EmptyFiles == config.EmptyIsolate:
				loose = append(loose, planner.Loose{Kind: model.PlanEmpty, Path: perr.Path, RelPath: perr.RelPath, Name: perr.Name})
			case cfg.Unmatched == config.UnmatchedIsolate:
				loose = append(loose, planner.Loose{Kind: model.PlanUnmatched, Path: perr.Path, RelPath: perr.RelPath, Name: perr.Name, Size: perr.Size})
			}
			continue
		}

		rec := res.Record
		if rec.Size == 0 {
			switch cfg.EmptyFiles {
			case config.EmptyIsolate:
				loose = append(loose, planner.Loose{Kind: model.PlanEmpty, Path: rec.Path, RelPath: rec.RelPath, Name: rec.Name})
				continue
			case config.EmptySkip:
				skipped = append(skipped, model.MovePlan{Kind: model.PlanEmpty, Src: rec.Path})
				continue
			}
		}
		records = append(records, rec)
	}

	sessions := grouper.Group(records)
	sum.Sessions = len(sessions)

	plans, err := plan.Plan(sessions, loose)
	if err != nil {
		if _, ok := errors.AsType[*model.ConflictError](err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	logger.Log.Info("planned",
		zap.Int("files", len(records)),
		zap.Int("sessions", len(sessions)),
		zap.Int("loose", len(loose)),
		zap.Int("parse_errors", len(sum.ParseErrors)),
		zap.Int("plans", len(plans)))
	for _, p := range plans {
		logger.Log.Debug("plan",
			zap.String("kind", string(p.Kind)),
			zap.String("src", p.Src),
			zap.String("dst", p.DstRel),
			zap.Int("conflict", p.Conflict))
	}

	for _, p := range skipped {
		sum.Add(model.Outcome{Plan: p, Kind: model.OutcomeSkipped, Reason: reasonEmptyFile})
	}

	exec := executor.New(r.mover, executor.Options{
		OutputRoot: out,
		Mode:       executor.Mode(cfg.Mode),
		Overwrite:  cfg.Overwrite,
		DryRun:     cfg.DryRun,
	})
	if err := exec.Execute(ctx, plans, sum); err != nil {
		return nil, &config.Error{Field: "output", Err: err}
	}

	r.finish(sum)
	return sum, nil
}

func newSummary(cfg *config.Config, src, out string) *model.Summary {
	return &model.Summary{
		RunID:       uuid.NewString(),
		Source:      src,
		Output:      out,
		DryRun:      cfg.DryRun,
		Mode:        cfg.Mode,
		StartedAt:   time.Now().UTC(),
		ParseErrors: []model.Failure{},
		Failures:    []model.Failure{},
	}
}

// finish stamps the summary and stores it. History failures are logged only.
func (r *Runner) finish(sum *model.Summary) {
	sum.FinishedAt = time.Now().UTC()

	if r.recorder != nil {
		if err := r.recorder.SaveRun(sum); err != nil {
			logger.Log.Warn("failed to save history",
				zap.String("run_id", sum.RunID),
				zap.Error(err))
		}
	}

	logger.Log.Info("run finished",
		zap.String("run_id", sum.RunID),
		zap.Int("moved", sum.Counts.Moved),
		zap.Int("skipped", sum.Counts.Skipped),
		zap.Int("failed", sum.Counts.Failed),
		zap.Int("planned", sum.Counts.Planned))
}

func isWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
