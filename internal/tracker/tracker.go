package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrLoad = errors.New("load processed series")
	ErrSave = errors.New("save processed series")
)

// Record describes one series that has been written to the sinks.
type Record struct {
	SeriesID    string    `json:"-"`
	ProcessedAt time.Time `json:"processed_at"`
	FilePath    string    `json:"file_path"`
	Team1       string    `json:"team1"`
	Team2       string    `json:"team2"`
}

// Tracker remembers which series were already processed so a sync pass
// only handles new ones. Marks become durable on Save.
type Tracker interface {
	IsProcessed(ctx context.Context, seriesID string) (bool, error)
	MarkProcessed(ctx context.Context, rec Record) error
	Processed(ctx context.Context) ([]string, error)
	Save(ctx context.Context) error
}

type fileState struct {
	ProcessedSeries map[string]Record `json:"processed_series"`
	LastUpdate      *time.Time        `json:"last_update"`
}

// File keeps the processed set in a JSON document on disk.
type File struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	state fileState
}

// OpenFile loads the tracker at path. A missing file starts empty.
func OpenFile(path string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &File{
		path:   path,
		logger: logger,
		now:    time.Now,
		state:  fileState{ProcessedSeries: map[string]Record{}},
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("no tracking file yet", zap.String("path", path))
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if err := json.Unmarshal(b, &t.state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	if t.state.ProcessedSeries == nil {
		t.state.ProcessedSeries = map[string]Record{}
	}
	logger.Info("loaded tracking file",
		zap.String("path", path), zap.Int("processed", len(t.state.ProcessedSeries)))
	return t, nil
}

func (t *File) IsProcessed(_ context.Context, seriesID string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.state.ProcessedSeries[seriesID]
	return ok, nil
}

func (t *File) MarkProcessed(_ context.Context, rec Record) error {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = t.now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.ProcessedSeries[rec.SeriesID] = rec
	return nil
}

func (t *File) Processed(context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.state.ProcessedSeries))
	for id := range t.state.ProcessedSeries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *File) Get(seriesID string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.state.ProcessedSeries[seriesID]
	if ok {
		rec.SeriesID = seriesID
	}
	return rec, ok
}

// Save stamps last_update and rewrites the file through a temp file and
// rename.
func (t *File) Save(context.Context) error {
	t.mu.Lock()
	now := t.now()
	t.state.LastUpdate = &now
	b, err := json.MarshalIndent(t.state, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}

	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrSave, err)
		}
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	t.logger.Debug("saved tracking file", zap.String("path", t.path))
	return nil
}
