package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/tracker"
)

var (
	_ tracker.Tracker = (*Store)(nil)
	_ report.Sink     = (*Store)(nil)
)

func (s *Store) IsProcessed(ctx context.Context, seriesID string) (bool, error) {
	var row ProcessedSeries
	err := s.db.WithContext(ctx).Select("series_id").Take(&row, "series_id = ?", seriesID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup series %s: %w", seriesID, err)
	}
	return true, nil
}

// MarkProcessed buffers the mark until Save, so a run whose sinks failed
// leaves the table untouched.
func (s *Store) MarkProcessed(_ context.Context, rec tracker.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, seriesFromRecord(rec))
	return nil
}

func (s *Store) Processed(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT series_id FROM processed_series ORDER BY series_id`)
	if err != nil {
		return nil, fmt.Errorf("list processed series: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&pending).Error
	if err != nil {
		s.mu.Lock()
		s.pending = append(pending, s.pending...)
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", tracker.ErrSave, err)
	}
	s.logger.Info("marked series processed", zap.Int("count", len(pending)))
	return nil
}

// Append stores rows in one transaction.
func (s *Store) Append(ctx context.Context, rows []report.Row) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]DraftReport, 0, len(rows))
	for _, r := range rows {
		m, err := reportFromRow(r)
		if err != nil {
			return fmt.Errorf("%w: %v", report.ErrSinkWrite, err)
		}
		models = append(models, m)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
	if err != nil {
		return fmt.Errorf("%w: postgres: %v", report.ErrSinkWrite, err)
	}
	return nil
}

// Recent returns up to limit stored rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]report.Row, error) {
	var reports []DraftReport
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	out := make([]report.Row, 0, len(reports))
	for _, r := range reports {
		row, err := rowFromColumns(r.Columns)
		if err != nil {
			s.logger.Warn("skipping stored report", zap.Uint("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
