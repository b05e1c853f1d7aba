package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/app"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/config"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/logging"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/sheets"
)

func main() {
	envPath := config.LoadDotenv()
	cfg, cfgErr := config.FromEnv()

	flag.IntVar(&cfg.LookbackMonths, "lookback", cfg.LookbackMonths, "months of scrims to look back")
	flag.IntVar(&cfg.ParseWorkers, "workers", cfg.ParseWorkers, "parallel parse workers")
	flag.StringVar(&cfg.CSVOutput, "csv", cfg.CSVOutput, "append rows to this CSV file")
	flag.StringVar(&cfg.SpreadsheetID, "sheet", cfg.SpreadsheetID, "Google spreadsheet id")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	parseFile := flag.String("parse", "", "parse one local livestats file and print the draft as JSON")
	createSheet := flag.String("create-sheet", "", "create a spreadsheet with this title, save its id to .env, then sync")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	if envPath != "" {
		logger.Info("loaded .env", zap.String("path", envPath))
	}
	if cfgErr != nil {
		logger.Warn("configuration", zap.Error(cfgErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *createSheet != "" {
		if envPath == "" {
			envPath = ".env"
		}
		id, err := createSpreadsheet(ctx, cfg, *createSheet, envPath)
		if err != nil {
			logger.Fatal("create spreadsheet", zap.Error(err))
		}
		logger.Info("spreadsheet created", zap.String("spreadsheet_id", id), zap.String("saved_to", envPath))
		cfg.SpreadsheetID = id
		if cfg.GridAPIKey == "" {
			return
		}
	}

	if err := run(ctx, cfg, logger, *parseFile); err != nil {
		logger.Error("analyzer failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// createSpreadsheet creates the sheet, prints its id and URL, and stores the
// id in envPath so later runs append to it.
func createSpreadsheet(ctx context.Context, cfg config.Config, title, envPath string) (string, error) {
	svc, err := sheets.NewService(ctx, app.SheetsOptions(cfg)...)
	if err != nil {
		return "", err
	}
	id, err := sheets.CreateSpreadsheet(ctx, svc, title, cfg.SheetName)
	if err != nil {
		return "", err
	}
	fmt.Println(id)
	fmt.Printf("https://docs.google.com/spreadsheets/d/%s\n", id)
	return id, config.PersistSpreadsheetID(envPath, id)
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, parseFile string) (err error) {
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	if parseFile != "" {
		m, err := a.Parser.ParseFile(parseFile)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Match  any      `json:"match"`
			Header []string `json:"header"`
			Row    []string `json:"row"`
		}{m, report.Header().Strings(), report.Format(report.SeriesMeta{}, m).Strings()})
	}

	if a.Pipeline == nil {
		return fmt.Errorf("GRID_API_KEY is required for a sync pass")
	}
	sum, err := a.Pipeline.Run(ctx)
	for _, f := range multierr.Errors(sum.Failures) {
		logger.Warn("series skipped", zap.Error(f))
	}
	if err != nil {
		return err
	}
	logger.Info("analyzer completed",
		zap.String("run_id", sum.RunID),
		zap.Int("new_series", sum.New),
		zap.Int("rows", sum.Rows))
	return nil
}
