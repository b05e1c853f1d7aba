package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/tracker"
)

type ProcessedSeries struct {
	SeriesID    string `gorm:"primaryKey"`
	ProcessedAt time.Time
	FilePath    string
	Team1       string
	Team2       string
}

func (ProcessedSeries) TableName() string { return "processed_series" }

func seriesFromRecord(rec tracker.Record) ProcessedSeries {
	return ProcessedSeries{
		SeriesID:    rec.SeriesID,
		ProcessedAt: rec.ProcessedAt,
		FilePath:    rec.FilePath,
		Team1:       rec.Team1,
		Team2:       rec.Team2,
	}
}

// DraftReport is a stored report row. The full positional row is kept as a
// JSON array next to the columns worth querying on.
type DraftReport struct {
	ID        uint   `gorm:"primaryKey"`
	SeriesID  string `gorm:"index"`
	Date      string
	Team1     string
	Team2     string
	Winner    string
	Columns   []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (DraftReport) TableName() string { return "draft_reports" }

func reportFromRow(row report.Row) (DraftReport, error) {
	cols, err := json.Marshal(row.Strings())
	if err != nil {
		return DraftReport{}, err
	}
	h := row.Strings()
	return DraftReport{
		SeriesID: h[0],
		Date:     h[1],
		Team1:    h[2],
		Team2:    h[3],
		Winner:   h[report.WinnerColumn],
		Columns:  cols,
	}, nil
}

func rowFromColumns(raw []byte) (report.Row, error) {
	var cols []string
	if err := json.Unmarshal(raw, &cols); err != nil {
		return report.Row{}, err
	}
	var row report.Row
	if len(cols) != len(row) {
		return row, fmt.Errorf("stored row has %d columns, want %d", len(cols), len(row))
	}
	copy(row[:], cols)
	return row, nil
}
