package repository

import (
	"time"

	"iiqsort/internal/db"
	"iiqsort/internal/model"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

// SaveRun stores every executed outcome of a run. Dry runs are not recorded.
func (r *HistoryRepository) SaveRun(sum *model.Summary) error {
	if sum.DryRun || len(sum.Outcomes) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]model.History, 0, len(sum.Outcomes))
	for _, o := range sum.Outcomes {
		h := model.History{
			RunID:     sum.RunID,
			Outcome:   o.Kind,
			Kind:      o.Plan.Kind,
			SrcPath:   o.Plan.Src,
			DstPath:   o.Plan.Dst,
			Reason:    o.Reason,
			Size:      o.Plan.Size,
			HandledAt: now,
		}
		if o.Plan.Session != nil {
			h.Station = o.Plan.Session.Station
		}
		if o.Err != nil {
			h.ErrMsg = o.Err.Error()
		}
		rows = append(rows, h)
	}

	return db.DB.CreateInBatches(&rows, 200).Error
}

type Stats struct {
	Total   int64 `json:"total"`
	Moved   int64 `json:"moved"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
	Runs    int64 `json:"runs"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	counts := []struct {
		kind model.OutcomeKind
		dst  *int64
	}{
		{model.OutcomeMoved, &stats.Moved},
		{model.OutcomeSkipped, &stats.Skipped},
		{model.OutcomeFailed, &stats.Failed},
	}
	for _, c := range counts {
		if err := db.DB.Model(&model.History{}).
			Where("outcome = ?", c.kind).
			Count(c.dst).Error; err != nil {
			return stats, err
		}
	}

	if err := db.DB.Model(&model.History{}).
		Distinct("run_id").
		Count(&stats.Runs).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Order("handled_at desc, id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetRun(runID string) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("run_id = ?", runID).
		Order("id asc").
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed() ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("outcome = ?", model.OutcomeFailed).
		Order("handled_at desc").
		Find(&histories)

	return histories, result.Error
}
