package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/champions"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/config"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/engine"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/grid"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/pipeline"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/sheets"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/store"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/tracker"
)

var ErrNoSink = errors.New("no report sink configured (set SPREADSHEET_ID, CSV_OUTPUT or DATABASE_URL)")

// App holds the wired components shared by the commands.
type App struct {
	Catalog  *champions.Catalog
	Parser   *engine.Parser
	Store    *store.Store       // nil without DATABASE_URL
	Pipeline *pipeline.Pipeline // nil without GRID_API_KEY

	closers []func() error
}

// Build wires every component the configuration enables. Missing GRID
// credentials leave Pipeline nil; a GRID key without any sink is an error.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	affinity, err := champions.LoadAffinityFile(cfg.AffinityFile, logger)
	if err != nil {
		return nil, err
	}
	a.Catalog = champions.NewCatalog(logger, affinity)
	if !a.Catalog.HasAffinity() {
		logger.Info("no lane affinity table, using static lanes")
	}
	a.Parser = engine.NewParser(a.Catalog, engine.WithLogger(logger))

	if cfg.DatabaseURL != "" {
		st, err := store.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.Store = st
		a.closers = append(a.closers, st.Close)
	}

	if cfg.GridAPIKey == "" {
		logger.Warn("GRID_API_KEY not set, sync disabled")
		return a, nil
	}

	sink, err := a.sinks(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var backing tracker.Tracker
	if a.Store != nil {
		backing = a.Store
	} else {
		file, err := tracker.OpenFile(cfg.TrackingFile, logger)
		if err != nil {
			return nil, err
		}
		backing = file
	}
	tr, err := tracker.NewBloom(ctx, backing)
	if err != nil {
		return nil, err
	}

	client, err := grid.New(cfg.GridAPIKey,
		grid.WithCentralURL(cfg.GridCentralURL),
		grid.WithFilesURL(cfg.GridFilesURL),
		grid.WithPace(cfg.DownloadPace),
		grid.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	a.Pipeline = pipeline.New(client, a.Parser, tr, sink, pipeline.Config{
		DownloadsDir:   cfg.DownloadsDir,
		LookbackMonths: cfg.LookbackMonths,
		Workers:        cfg.ParseWorkers,
	}, logger)
	return a, nil
}

func (a *App) sinks(ctx context.Context, cfg config.Config, logger *zap.Logger) (report.Sink, error) {
	var sinks []report.Sink
	if cfg.SpreadsheetID != "" {
		svc, err := sheets.NewService(ctx, SheetsOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		s, err := sheets.NewSink(svc, cfg.SpreadsheetID, cfg.SheetName, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.CSVOutput != "" {
		sinks = append(sinks, report.NewCSVSink(cfg.CSVOutput))
	}
	if a.Store != nil {
		sinks = append(sinks, a.Store)
	}
	switch len(sinks) {
	case 0:
		return nil, ErrNoSink
	case 1:
		return sinks[0], nil
	}
	return report.Multi(sinks...), nil
}

// SheetsOptions returns the client options for the configured credentials.
func SheetsOptions(cfg config.Config) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if err := multierr.Combine(errs...); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
