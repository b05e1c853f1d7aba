package report

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/champions"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/engine"
)

func ban(team engine.Team, turn int, champ string) engine.DraftAction {
	return engine.DraftAction{Type: engine.ActionBan, Team: team, PickTurn: turn, Champion: champ}
}

func pick(team engine.Team, turn int, champ string) engine.DraftAction {
	return engine.DraftAction{Type: engine.ActionPick, Team: team, PickTurn: turn, Champion: champ}
}

func fullMatch() *engine.ParsedMatch {
	B, R := engine.TeamBlue, engine.TeamRed
	return &engine.ParsedMatch{
		Actions: []engine.DraftAction{
			ban(B, 1, "b1"), ban(R, 2, "r1"), ban(B, 3, "b2"), ban(R, 4, "r2"), ban(B, 5, "b3"), ban(R, 6, "r3"),
			pick(B, 7, "P1"), pick(R, 8, "P2"), pick(R, 9, "P3"), pick(B, 10, "P4"), pick(B, 11, "P5"), pick(R, 12, "P6"),
			ban(R, 13, "r4"), ban(B, 14, "b4"), ban(R, 15, "r5"), ban(B, 16, "b5"),
			pick(R, 17, "P7"), pick(B, 18, "P8"), pick(B, 19, "P9"), pick(R, 20, "P10"),
		},
		TeamOne: engine.TeamDraft{Name: "BLU", Picks: []engine.TeamPick{
			{Champion: "P1", Role: champions.RoleTop},
			{Champion: "P4", Role: champions.RoleJungle},
			{Champion: "P5", Role: ""},
			{Champion: "P8", Role: champions.RoleADC},
			{Champion: "P9", Role: champions.RoleSupport},
		}},
		TeamTwo: engine.TeamDraft{Name: "RED", Picks: []engine.TeamPick{
			{Champion: "P2", Role: champions.RoleMid},
		}},
		Winner: "RED",
	}
}

func TestFormat_FullDraft(t *testing.T) {
	meta := SeriesMeta{ID: "2718", ScheduledAt: time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC)}

	row := Format(meta, fullMatch())

	assert.Equal(t, "2718", row[0])
	assert.Equal(t, "2025-03-04 18:30", row[1])
	assert.Equal(t, "BLU", row[2])
	assert.Equal(t, "RED", row[3])
	assert.Equal(t,
		[]string{"b1", "r1", "b2", "r2", "b3", "r3", "r4", "b4", "r5", "b5"},
		row[colBans:colPicks])
	assert.Equal(t,
		[]string{"P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8", "P9", "P10"},
		row[colPicks:colWinner])
	assert.Equal(t, "RED", row[colWinner])
	assert.Equal(t,
		[]string{"P1", "P4", "", "P8", "P9", "", "", "P2", "", ""},
		row[colLanes:])
}

func TestFormat_PartialDraft(t *testing.T) {
	B, R := engine.TeamBlue, engine.TeamRed
	m := &engine.ParsedMatch{
		Actions: []engine.DraftAction{
			ban(B, 1, "b1"), ban(B, 3, "b2"), ban(R, 2, "r1"),
			pick(R, 8, "P2"),
		},
		TeamOne: engine.TeamDraft{Name: "Team1"},
		TeamTwo: engine.TeamDraft{Name: "Team2"},
	}

	row := Format(SeriesMeta{ID: "9"}, m)

	assert.Equal(t, UnknownDate, row[colDate])
	assert.Equal(t, []string{"b1", "r1", "b2", "", "", "", "", "", "", ""}, row[colBans:colPicks])
	assert.Equal(t, []string{"", "P2", "", "", "", "", "", "", "", ""}, row[colPicks:colWinner])
	assert.Equal(t, "", row[colWinner])
}

func TestHeader(t *testing.T) {
	h := Header()
	assert.Len(t, h.Strings(), Width)
	assert.Equal(t, 35, Width)
	assert.Equal(t, "Series ID", h[0])
	assert.Equal(t, "Ban 1 (Blue)", h[colBans])
	assert.Equal(t, "Ban 7 (Red)", h[colBans+6])
	assert.Equal(t, "Pick 3 (Red)", h[colPicks+2])
	assert.Equal(t, "Winner", h[colWinner])
	assert.Equal(t, "Team 1 Top", h[colLanes])
	assert.Equal(t, "Team 2 Support", h[Width-1])
	for i, title := range h {
		assert.NotEmpty(t, title, "column %d", i)
	}
}

func TestCSVSink_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.csv")
	sink := NewCSVSink(path)
	ctx := context.Background()

	first := Format(SeriesMeta{ID: "1"}, fullMatch())
	second := Format(SeriesMeta{ID: "2"}, fullMatch())
	require.NoError(t, sink.Append(ctx, []Row{first}))
	require.NoError(t, sink.Append(ctx, []Row{second}))
	require.NoError(t, sink.Append(ctx, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, Header().Strings(), records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2", records[2][0])
	assert.Len(t, records[2], Width)
}

type recordingSink struct {
	rows []Row
	err  error
}

func (s *recordingSink) Append(_ context.Context, rows []Row) error {
	s.rows = append(s.rows, rows...)
	return s.err
}

func TestMulti_AttemptsEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("quota")}
	ok := &recordingSink{}

	err := Multi(failing, ok).Append(context.Background(), []Row{{}})

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.True(t, strings.Contains(err.Error(), "quota"))
	assert.Len(t, ok.rows, 1)
}

func TestMulti_QueuesRowsForFailedSink(t *testing.T) {
	ctx := context.Background()
	down := &memSink{err: errors.New("postgres down")}
	ok := &memSink{}
	m := Multi(ok, down)

	first := Row{0: "100"}
	err := m.Append(ctx, []Row{first})
	require.ErrorIs(t, err, ErrPartialWrite)
	assert.Equal(t, []int{0, 1}, m.Queued())

	// still down: the healthy sink only sees the new batch
	second := Row{0: "200"}
	require.ErrorIs(t, m.Append(ctx, []Row{second}), ErrPartialWrite)
	assert.Equal(t, []int{0, 2}, m.Queued())

	down.err = nil
	require.NoError(t, m.Append(ctx, nil))
	assert.Equal(t, []int{0, 0}, m.Queued())

	assert.Equal(t, []Row{first, second}, ok.rows)
	assert.Equal(t, []Row{first, second}, down.rows)
}

func TestMulti_NothingQueuedWhenEverySinkFails(t *testing.T) {
	a := &memSink{err: errors.New("a")}
	b := &memSink{err: errors.New("b")}
	m := Multi(a, b)

	err := m.Append(context.Background(), []Row{{0: "1"}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPartialWrite)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, []int{0, 0}, m.Queued())
}

// memSink keeps rows only when the append succeeds.
type memSink struct {
	rows []Row
	err  error
}

func (s *memSink) Append(_ context.Context, rows []Row) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, rows...)
	return nil
}
