package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/ws"
)

type Deps struct {
	Parser  DraftParser
	Reports ReportLister  // nil when no database is configured
	Sync    Syncer        // nil when GRID is not configured
	Feed    ws.StatusFeed // nil when GRID is not configured
	Logger  *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", Healthz)
	r.Post("/drafts/parse", ParseDraft(d.Parser, logger))
	r.Get("/reports", ListReports(d.Reports, logger))
	r.Post("/sync", TriggerSync(d.Sync, logger))
	r.Get("/sync", SyncStatus(d.Sync))
	r.Get("/sync/ws", ws.Handler(d.Feed, logger))
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
