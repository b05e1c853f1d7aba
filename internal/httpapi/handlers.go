package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/engine"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/hub"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
)

const (
	maxBodyBytes       = 32 << 20
	defaultReportLimit = 50
	maxReportLimit     = 500
)

// DraftParser parses one snapshot stream. *engine.Parser satisfies it.
type DraftParser interface {
	Parse(r io.Reader) (*engine.ParsedMatch, error)
}

// ReportLister lists stored rows, newest first. *store.Store satisfies it.
type ReportLister interface {
	Recent(ctx context.Context, limit int) ([]report.Row, error)
}

// Syncer starts and reports on sync passes. *hub.Hub satisfies it.
type Syncer interface {
	Trigger(ctx context.Context) (bool, error)
	Status(ctx context.Context) (hub.Status, error)
}

type parseResponse struct {
	Match  *engine.ParsedMatch `json:"match"`
	Header []string            `json:"header"`
	Row    []string            `json:"row"`
}

type reportsResponse struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// ParseDraft parses a JSONL body and returns the match with its report row.
// The optional series and date (RFC 3339 or "2006-01-02 15:04") query
// parameters fill the row's metadata.
func ParseDraft(p DraftParser, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta := report.SeriesMeta{ID: r.URL.Query().Get("series")}
		if raw := r.URL.Query().Get("date"); raw != "" {
			t, err := parseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid date")
				return
			}
			meta.ScheduledAt = t
		}

		body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
		m, err := p.Parse(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "body too large")
				return
			}
			logger.Warn("parse request failed", zap.Error(err))
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, parseResponse{
			Match:  m,
			Header: report.Header().Strings(),
			Row:    report.Format(meta, m).Strings(),
		})
	}
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(report.DateLayout, raw)
}

func ListReports(l ReportLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if l == nil {
			writeError(w, http.StatusServiceUnavailable, "report storage not configured")
			return
		}
		limit := defaultReportLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = min(n, maxReportLimit)
		}

		rows, err := l.Recent(r.Context(), limit)
		if err != nil {
			logger.Error("listing reports failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list reports")
			return
		}
		out := reportsResponse{Header: report.Header().Strings(), Rows: make([][]string, 0, len(rows))}
		for _, row := range rows {
			out.Rows = append(out.Rows, row.Strings())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func TriggerSync(s Syncer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s == nil {
			writeError(w, http.StatusServiceUnavailable, "sync not configured")
			return
		}
		started, err := s.Trigger(r.Context())
		if err != nil {
			logger.Error("triggering sync failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "sync unavailable")
			return
		}
		if !started {
			writeError(w, http.StatusConflict, "sync already running")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func SyncStatus(s Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s == nil {
			writeError(w, http.StatusServiceUnavailable, "sync not configured")
			return
		}
		st, err := s.Status(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "sync unavailable")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
