package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/champions"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/engine"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/grid"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/tracker"
)

const sampleDraft = `{"gameState":"CHAMP_SELECT","pickTurn":1,"rfc460Timestamp":"t1","bannedChampions":[{"championID":266,"pickTurn":1,"teamID":100}],"teamOne":[{"participantID":1,"championID":0,"pickTurn":0,"displayName":"BLU Top"}],"teamTwo":[{"participantID":6,"championID":0,"pickTurn":0,"displayName":"RED Top"}]}
{"gameState":"CHAMP_SELECT","pickTurn":7,"rfc460Timestamp":"t2","bannedChampions":[{"championID":266,"pickTurn":1,"teamID":100}],"teamOne":[{"participantID":1,"championID":64,"pickTurn":7,"displayName":"BLU Top"}],"teamTwo":[]}
{"gameState":"GAME_END","winningTeam":200}
`

// fakeSource serves files from an in-memory map and writes downloads into dir.
type fakeSource struct {
	series   []grid.Series
	files    map[string][]grid.File
	contents map[string]string
	listErr  map[string]error
	discErr  error

	mu        sync.Mutex
	downloads int
}

func (f *fakeSource) Discover(context.Context, time.Time, time.Duration) ([]grid.Series, error) {
	return f.series, f.discErr
}

func (f *fakeSource) ListFiles(_ context.Context, id string) ([]grid.File, error) {
	if err := f.listErr[id]; err != nil {
		return nil, err
	}
	return f.files[id], nil
}

func (f *fakeSource) Download(_ context.Context, dir, id string, file grid.File) (grid.Download, error) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	path := grid.LocalPath(dir, id, file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return grid.Download{}, err
	}
	if err := os.WriteFile(path, []byte(f.contents[file.ID]), 0o644); err != nil {
		return grid.Download{}, err
	}
	return grid.Download{Path: path}, nil
}

type memorySink struct {
	rows []report.Row
	err  error
}

func (s *memorySink) Append(_ context.Context, rows []report.Row) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, rows...)
	return nil
}

func livestats(id string) grid.File {
	return grid.File{ID: id, Description: "Riot LiveStats", FullURL: "http://files/" + id}
}

func newFixture(t *testing.T, src *fakeSource, sink report.Sink) (*Pipeline, *tracker.File, string) {
	t.Helper()
	dir := t.TempDir()
	trackPath := filepath.Join(dir, "processed_scrims.json")
	tr, err := tracker.OpenFile(trackPath, nil)
	require.NoError(t, err)

	parser := engine.NewParser(champions.NewCatalog(nil, nil))
	p := New(src, parser, tr, sink, Config{DownloadsDir: filepath.Join(dir, "downloads"), Workers: 2}, nil)
	p.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return p, tr, trackPath
}

func TestRun_EndToEnd(t *testing.T) {
	scheduled := time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC)
	src := &fakeSource{
		series: []grid.Series{
			{ID: "100", ScheduledAt: scheduled},
			{ID: "200"},
			{ID: "300"},
			{ID: "400"},
		},
		files: map[string][]grid.File{
			"100": {livestats("a"), {ID: "x", Description: "grid events"}},
			"200": {livestats("b")},
			"300": {},
		},
		contents: map[string]string{"a": sampleDraft, "b": "garbage\n"},
		listErr:  map[string]error{"400": errors.New("boom")},
	}
	sink := &memorySink{}
	p, tr, trackPath := newFixture(t, src, sink)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 4, sum.Discovered)
	assert.Equal(t, 4, sum.New)
	assert.Equal(t, 2, sum.Files)
	assert.Equal(t, 2, sum.Parsed, "a file of garbage still parses to an empty draft")
	assert.Equal(t, 2, sum.Rows)
	assert.Equal(t, 2, sum.Marked)
	require.Error(t, sum.Failures)
	assert.Len(t, multierr.Errors(sum.Failures), 1)
	assert.Equal(t, 2, src.downloads)

	require.Len(t, sink.rows, 2)
	row := sink.rows[0]
	assert.Equal(t, "100", row[0])
	assert.Equal(t, "2025-03-04 18:30", row[1])
	assert.Equal(t, "BLU", row[2])
	assert.Equal(t, "RED", row[3])
	assert.Equal(t, "Aatrox", row[4])
	assert.Equal(t, "Lee Sin", row[14])
	assert.Equal(t, "RED", row[report.WinnerColumn])

	rec, ok := tr.Get("100")
	require.True(t, ok)
	assert.Equal(t, "BLU", rec.Team1)
	assert.True(t, strings.HasSuffix(rec.FilePath, "series_100_a.jsonl"))

	_, err = os.Stat(trackPath)
	require.NoError(t, err, "tracker is saved after a successful sink")

	// a second pass finds nothing new for the marked series
	sink.rows = nil
	sum, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.New)
	assert.Empty(t, sink.rows)
}

func TestRun_SinkFailureSkipsTracker(t *testing.T) {
	src := &fakeSource{
		series:   []grid.Series{{ID: "1"}},
		files:    map[string][]grid.File{"1": {livestats("a")}},
		contents: map[string]string{"a": sampleDraft},
	}
	p, tr, trackPath := newFixture(t, src, &memorySink{err: errors.New("quota exceeded")})

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrSink)

	ok, _ := tr.IsProcessed(context.Background(), "1")
	assert.False(t, ok)
	_, statErr := os.Stat(trackPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_DiscoveryFailureIsFatal(t *testing.T) {
	src := &fakeSource{discErr: errors.New("unauthorized")}
	p, _, _ := newFixture(t, src, &memorySink{})

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrDiscover)
}

type failingParser struct{ fail string }

func (f failingParser) ParseFile(path string) (*engine.ParsedMatch, error) {
	if strings.Contains(path, f.fail) {
		return nil, engine.ErrStreamRead
	}
	return &engine.ParsedMatch{TeamOne: engine.TeamDraft{Name: "A"}, TeamTwo: engine.TeamDraft{Name: "B"}}, nil
}

func TestRun_ParseFailureIsIsolated(t *testing.T) {
	src := &fakeSource{
		series: []grid.Series{{ID: "1"}, {ID: "2"}, {ID: "3"}},
		files: map[string][]grid.File{
			"1": {livestats("a")},
			"2": {livestats("bad")},
			"3": {livestats("c")},
		},
		contents: map[string]string{},
	}
	sink := &memorySink{}
	core, logs := observer.New(zap.WarnLevel)
	p, _, _ := newFixture(t, src, sink)
	p.parser = failingParser{fail: "_bad"}
	p.logger = zap.New(core)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Rows)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, "1", sink.rows[0][0])
	assert.Equal(t, "3", sink.rows[1][0])
	assert.ErrorIs(t, sum.Failures, engine.ErrStreamRead)
	assert.Equal(t, 1, logs.FilterMessage("parse failed").Len())
}

func TestRun_NothingNew(t *testing.T) {
	src := &fakeSource{series: []grid.Series{{ID: "1"}}}
	p, tr, _ := newFixture(t, src, &memorySink{})
	require.NoError(t, tr.MarkProcessed(context.Background(), tracker.Record{SeriesID: "1"}))

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.New)
	assert.Equal(t, 0, src.downloads)
}

func TestRun_PartialSinkFailureWritesOnce(t *testing.T) {
	src := &fakeSource{
		series:   []grid.Series{{ID: "100"}},
		files:    map[string][]grid.File{"100": {livestats("a")}},
		contents: map[string]string{"a": sampleDraft},
	}
	good := &memorySink{}
	db := &memorySink{err: errors.New("postgres down")}
	fan := report.Multi(good, db)
	p, tr, _ := newFixture(t, src, fan)
	ctx := context.Background()

	sum, err := p.Run(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, sum.Failures, ErrSink)
	assert.ErrorIs(t, sum.Failures, report.ErrPartialWrite)
	assert.Equal(t, 1, sum.Marked)
	ok, err := tr.IsProcessed(ctx, "100")
	require.NoError(t, err)
	assert.True(t, ok)

	for range 2 {
		_, err = p.Run(ctx)
		require.NoError(t, err)
	}
	assert.Len(t, good.rows, 1)
	assert.Empty(t, db.rows)
	assert.Equal(t, []int{0, 1}, fan.Queued())

	db.err = nil
	sum, err = p.Run(ctx)
	require.NoError(t, err)
	assert.NoError(t, sum.Failures)
	assert.Len(t, good.rows, 1)
	require.Len(t, db.rows, 1)
	assert.Equal(t, "100", db.rows[0][0])
	assert.Equal(t, []int{0, 0}, fan.Queued())
}

func TestRun_NoSinkAcceptsSkipsTracker(t *testing.T) {
	src := &fakeSource{
		series:   []grid.Series{{ID: "1"}},
		files:    map[string][]grid.File{"1": {livestats("a")}},
		contents: map[string]string{"a": sampleDraft},
	}
	fan := report.Multi(&memorySink{err: errors.New("quota")}, &memorySink{err: errors.New("down")})
	p, tr, _ := newFixture(t, src, fan)

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrSink)
	ok, _ := tr.IsProcessed(context.Background(), "1")
	assert.False(t, ok)
	assert.Equal(t, []int{0, 0}, fan.Queued())
}
