package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/champions"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/engine"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/hub"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
)

const draftBody = `{"gameState":"CHAMP_SELECT","bannedChampions":[{"championID":266,"pickTurn":1,"teamID":100}],"teamOne":[{"participantID":1,"championID":64,"pickTurn":7,"displayName":"BLU Jungle"}],"teamTwo":[{"participantID":6,"championID":0,"pickTurn":0,"displayName":"RED Top"}]}
not json
{"gameState":"GAME_END","winningTeam":100}
`

type stubReports struct {
	rows  []report.Row
	err   error
	limit int
}

func (s *stubReports) Recent(_ context.Context, limit int) ([]report.Row, error) {
	s.limit = limit
	return s.rows, s.err
}

func newServer(t *testing.T, reports ReportLister) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(SetupRoutes(Deps{
		Parser:  engine.NewParser(champions.NewCatalog(nil, nil)),
		Reports: reports,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParseDraft(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Post(srv.URL+"/drafts/parse?series=2718&date=2025-03-04T18:30:00Z", "application/x-ndjson", strings.NewReader(draftBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body parseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	require.NotNil(t, body.Match)
	assert.Equal(t, 1, body.Match.SkippedLines)
	assert.Equal(t, "BLU", body.Match.Winner)
	assert.Equal(t, []string{"Aatrox"}, body.Match.BlueBans)
	require.Len(t, body.Row, report.Width)
	require.Len(t, body.Header, report.Width)
	assert.Equal(t, "2718", body.Row[0])
	assert.Equal(t, "2025-03-04 18:30", body.Row[1])
	assert.Equal(t, "Lee Sin", body.Row[14])
}

func TestParseDraft_BadRequests(t *testing.T) {
	handler := SetupRoutes(Deps{Parser: engine.NewParser(champions.NewCatalog(nil, nil))})

	cases := []struct {
		name string
		url  string
		body string
		want int
	}{
		{"bad date", "/drafts/parse?date=yesterday", draftBody, http.StatusBadRequest},
		{"line over the scanner limit", "/drafts/parse", strings.Repeat("x", 5<<20), http.StatusBadRequest},
		{"body over the request limit", "/drafts/parse", strings.Repeat("{}\n", (33<<20)/3), http.StatusRequestEntityTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.url, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestListReports(t *testing.T) {
	var row report.Row
	row[0] = "2718"
	stub := &stubReports{rows: []report.Row{row}}
	srv := newServer(t, stub)

	resp, err := http.Get(srv.URL + "/reports?limit=10000")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body reportsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "2718", body.Rows[0][0])
	assert.Equal(t, maxReportLimit, stub.limit)
}

func TestListReports_Errors(t *testing.T) {
	cases := []struct {
		name    string
		reports ReportLister
		query   string
		want    int
	}{
		{"no storage", nil, "", http.StatusServiceUnavailable},
		{"bad limit", &stubReports{}, "?limit=-1", http.StatusBadRequest},
		{"storage error", &stubReports{err: errors.New("db down")}, "", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.reports)
			resp, err := http.Get(srv.URL + "/reports" + tc.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

type stubSyncer struct {
	started bool
	err     error
}

func (s stubSyncer) Trigger(context.Context) (bool, error) { return s.started, s.err }

func (s stubSyncer) Status(context.Context) (hub.Status, error) {
	return hub.Status{Runs: 2, LastRows: 5}, s.err
}

func TestSyncRoutes(t *testing.T) {
	cases := []struct {
		name   string
		sync   Syncer
		method string
		want   int
	}{
		{"started", stubSyncer{started: true}, http.MethodPost, http.StatusAccepted},
		{"already running", stubSyncer{}, http.MethodPost, http.StatusConflict},
		{"hub gone", stubSyncer{err: context.Canceled}, http.MethodPost, http.StatusServiceUnavailable},
		{"not configured", nil, http.MethodPost, http.StatusServiceUnavailable},
		{"status", stubSyncer{}, http.MethodGet, http.StatusOK},
		{"status not configured", nil, http.MethodGet, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := SetupRoutes(Deps{Parser: engine.NewParser(champions.NewCatalog(nil, nil)), Sync: tc.sync})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, "/sync", nil))
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				var st hub.Status
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
				assert.Equal(t, 5, st.LastRows)
			}
		})
	}
}

func TestSyncStream_NotConfigured(t *testing.T) {
	handler := SetupRoutes(Deps{Parser: engine.NewParser(champions.NewCatalog(nil, nil))})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
