package tracker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "processed_scrims.json")

	tr, err := OpenFile(path, nil)
	require.NoError(t, err)

	ok, err := tr.IsProcessed(ctx, "2718")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC)
	require.NoError(t, tr.MarkProcessed(ctx, Record{SeriesID: "2718", ProcessedAt: at, FilePath: "a.jsonl", Team1: "BLU", Team2: "RED"}))
	require.NoError(t, tr.MarkProcessed(ctx, Record{SeriesID: "1000"}))
	require.NoError(t, tr.Save(ctx))

	reopened, err := OpenFile(path, nil)
	require.NoError(t, err)

	ids, err := reopened.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000", "2718"}, ids)

	rec, ok := reopened.Get("2718")
	require.True(t, ok)
	assert.Equal(t, "BLU", rec.Team1)
	assert.Equal(t, "a.jsonl", rec.FilePath)
	assert.True(t, at.Equal(rec.ProcessedAt))

	other, _ := reopened.Get("1000")
	assert.False(t, other.ProcessedAt.IsZero(), "processed_at defaults to now")
}

func TestFile_DocumentLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed_scrims.json")
	tr, err := OpenFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, tr.MarkProcessed(ctx, Record{SeriesID: "7", Team1: "A", Team2: "B"}))
	require.NoError(t, tr.Save(ctx))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Contains(t, doc, "processed_series")
	assert.Contains(t, doc, "last_update")

	var series map[string]map[string]any
	require.NoError(t, json.Unmarshal(doc["processed_series"], &series))
	assert.Equal(t, "A", series["7"]["team1"])
	assert.Contains(t, series["7"], "processed_at")
}

func TestOpenFile_ReadsLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_scrims.json")
	legacy := `{"processed_series": {"42": {"processed_at": "2025-01-02T03:04:05Z", "file_path": "x", "team1": "T1", "team2": "GEN"}}, "last_update": null}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	tr, err := OpenFile(path, nil)
	require.NoError(t, err)
	ok, err := tr.IsProcessed(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_scrims.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := OpenFile(path, nil)
	require.ErrorIs(t, err, ErrLoad)
}

type countingTracker struct {
	*File
	lookups int
}

func (c *countingTracker) IsProcessed(ctx context.Context, id string) (bool, error) {
	c.lookups++
	return c.File.IsProcessed(ctx, id)
}

func TestBloom(t *testing.T) {
	ctx := context.Background()
	file, err := OpenFile(filepath.Join(t.TempDir(), "p.json"), nil)
	require.NoError(t, err)
	require.NoError(t, file.MarkProcessed(ctx, Record{SeriesID: "seeded"}))

	backing := &countingTracker{File: file}
	b, err := NewBloom(ctx, backing)
	require.NoError(t, err)

	ok, err := b.IsProcessed(ctx, "seeded")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, backing.lookups)

	ok, err = b.IsProcessed(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.MarkProcessed(ctx, Record{SeriesID: "fresh"}))
	ok, err = b.IsProcessed(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := b.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh", "seeded"}, ids)
}
