package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"iiqsort/internal/config"
	"iiqsort/internal/executor"
	"iiqsort/internal/grammar"
	"iiqsort/internal/logger"
	"iiqsort/internal/model"
	"iiqsort/internal/pairing"
	"iiqsort/internal/planner"
	"iiqsort/internal/scan"

	"go.uber.org/zap"
)

// camera is one side of a pair run.
type camera struct {
	dir     string
	name    string
	records []model.FileRecord
	empty   int
}

// Pair sorts the two camera directories found under base in place. Captures
// with a counterpart in the other camera end up flat in their camera
// directory, the rest under its unmatched directory. Empty files follow the
// empty_files policy; with keep they take part in matching.
func (r *Runner) Pair(ctx context.Context, base string) (*model.Summary, error) {
	cfg := r.cfg

	root, err := filepath.Abs(base)
	if err != nil {
		return nil, &config.Error{Field: "source", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == config.ModeCopy {
		return nil, &config.Error{Field: "mode", Err: fmt.Errorf("pair mode sorts in place and only supports %s", config.ModeMove)}
	}
	if err := config.CheckSource(root); err != nil {
		return nil, err
	}

	leftDir, err := scan.FindDir(root, cfg.Pair.Left)
	if err != nil {
		return nil, &config.Error{Field: "pair.left", Err: err}
	}
	rightDir, err := scan.FindDir(root, cfg.Pair.Right)
	if err != nil {
		return nil, &config.Error{Field: "pair.right", Err: err}
	}
	if leftDir == rightDir {
		return nil, &config.Error{Field: "pair.right", Err: fmt.Errorf("%s matches both camera patterns", leftDir)}
	}

	g, err := cfg.BuildPairGrammar()
	if err != nil {
		return nil, err
	}

	sum := newSummary(cfg, root, root)

	logger.Log.Info("pair run started",
		zap.String("run_id", sum.RunID),
		zap.String("left", leftDir),
		zap.String("right", rightDir),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Duration("threshold", cfg.Pair.Threshold))

	var (
		placements []planner.Placement
		skipped    []model.MovePlan
	)
	sides := make([]*camera, 0, 2)
	for _, dir := range []string{leftDir, rightDir} {
		cam := &camera{dir: dir, name: filepath.Base(dir)}
		placements, skipped = r.collect(cam, g, sum, placements, skipped)
		sides = append(sides, cam)
	}
	left, right := sides[0], sides[1]

	res, err := pairing.Match(left.records, right.records, cfg.Pair.Threshold)
	if err != nil {
		return nil, &config.Error{Field: "pair.threshold", Err: err}
	}

	seen := make(map[string]struct{}, len(left.records)+len(right.records))
	place := func(kind model.PlanKind, dir string, rec model.FileRecord) {
		if _, ok := seen[rec.Path]; ok {
			return
		}
		seen[rec.Path] = struct{}{}
		placements = append(placements, planner.Placement{
			Kind: kind,
			Path: rec.Path,
			Name: rec.Name,
			Size: rec.Size,
			Dir:  dir,
		})
	}
	for _, p := range res.Pairs {
		place(model.PlanPaired, left.name, p.Left)
		place(model.PlanPaired, right.name, p.Right)
	}
	for _, rec := range res.LeftUnmatched {
		place(model.PlanUnpaired, filepath.Join(left.name, cfg.UnmatchedDir), rec)
	}
	for _, rec := range res.RightUnmatched {
		place(model.PlanUnpaired, filepath.Join(right.name, cfg.UnmatchedDir), rec)
	}

	sum.Pairing = &model.PairStats{
		Left:           left.name,
		Right:          right.name,
		LeftCount:      len(left.records) + emptyOutside(cfg, left),
		RightCount:     len(right.records) + emptyOutside(cfg, right),
		Matched:        len(res.Pairs),
		LeftUnmatched:  len(res.LeftUnmatched),
		RightUnmatched: len(res.RightUnmatched),
		LeftEmpty:      left.empty,
		RightEmpty:     right.empty,
	}

	plans, err := planner.Place(root, placements, cfg.SuffixSep, cfg.SuffixStart)
	if err != nil {
		if _, ok := errors.AsType[*model.ConflictError](err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	logger.Log.Info("pairs planned",
		zap.Int("left", sum.Pairing.LeftCount),
		zap.Int("right", sum.Pairing.RightCount),
		zap.Int("matched", sum.Pairing.Matched),
		zap.Int("left_unmatched", sum.Pairing.LeftUnmatched),
		zap.Int("right_unmatched", sum.Pairing.RightUnmatched),
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
		OutputRoot: root,
		Mode:       executor.ModeMove,
		Overwrite:  cfg.Overwrite,
		DryRun:     cfg.DryRun,
	})
	if err := exec.Execute(ctx, plans, sum); err != nil {
		return nil, &config.Error{Field: "source", Err: err}
	}

	r.finish(sum)
	return sum, nil
}

// collect enumerates one camera directory. Parsed captures that take part in
// matching land in cam.records; empty and unparseable files are placed or
// skipped right away according to policy.
func (r *Runner) collect(cam *camera, g *grammar.Grammar, sum *model.Summary, placements []planner.Placement, skipped []model.MovePlan) ([]planner.Placement, []model.MovePlan) {
	cfg := r.cfg
	walker := scan.Walker{
		Root:    cam.dir,
		Include: cfg.Include,
		Ignore:  cfg.IgnoreList,
	}

	emptyDir := filepath.Join(cam.name, cfg.EmptyDir)
	unmatchedDir := filepath.Join(cam.name, cfg.UnmatchedDir)

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
				placements = append(placements, planner.Placement{Kind: model.PlanEmpty, Path: perr.Path, Name: perr.Name, Dir: emptyDir})
			case cfg.Unmatched == config.UnmatchedIsolate:
				placements = append(placements, planner.Placement{Kind: model.PlanUnmatched, Path: perr.Path, Name: perr.Name, Size: perr.Size, Dir: unmatchedDir})
			}
			continue
		}

		rec := res.Record
		if rec.Size == 0 {
			cam.empty++
			switch cfg.EmptyFiles {
			case config.EmptyIsolate:
				placements = append(placements, planner.Placement{Kind: model.PlanEmpty, Path: rec.Path, Name: rec.Name, Dir: emptyDir})
				continue
			case config.EmptySkip:
				skipped = append(skipped, model.MovePlan{Kind: model.PlanEmpty, Src: rec.Path})
				continue
			}
		}
		cam.records = append(cam.records, rec)
	}

	return placements, skipped
}

// emptyOutside is the number of empty captures that did not take part in
// matching.
func emptyOutside(cfg *config.Config, cam *camera) int {
	if cfg.EmptyFiles == config.EmptyKeep {
		return 0
	}
	return cam.empty
}
