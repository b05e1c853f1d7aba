package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var envPaths = []string{".env", "../.env"}

type Config struct {
	GridAPIKey     string
	GridCentralURL string
	GridFilesURL   string
	LookbackMonths int
	DownloadPace   time.Duration

	DownloadsDir string
	TrackingFile string
	AffinityFile string

	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CSVOutput       string
	DatabaseURL     string

	HTTPAddr     string
	LogLevel     string
	ParseWorkers int
	SyncInterval time.Duration
}

// LoadDotenv loads the first .env found and reports its path, or "" when
// none exists.
func LoadDotenv() string {
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// PersistSpreadsheetID stores SPREADSHEET_ID in the dotenv file at path,
// keeping the other keys. The file is created when missing.
func PersistSpreadsheetID(path, id string) error {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		if env, err = godotenv.Read(path); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
	env["SPREADSHEET_ID"] = id
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FromEnv reads the configuration from the environment, applying defaults.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	str := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	var firstErr error
	num := func(key string, def int) int {
		v, ok := lookup(key)
		if !ok || v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: invalid value %q", key, v)
			}
			return def
		}
		return n
	}

	cfg := Config{
		GridAPIKey:      str("GRID_API_KEY", ""),
		GridCentralURL:  str("GRID_CENTRAL_URL", "https://api-op.grid.gg/central-data/graphql"),
		GridFilesURL:    str("GRID_FILES_URL", "https://api.grid.gg/file-download"),
		LookbackMonths:  num("LOOKBACK_MONTHS", 2),
		DownloadPace:    time.Duration(num("DOWNLOAD_PACE_MS", 500)) * time.Millisecond,
		DownloadsDir:    str("DOWNLOADS_DIR", "./scrim_downloads"),
		TrackingFile:    str("TRACKING_FILE", "processed_scrims.json"),
		AffinityFile:    str("AFFINITY_FILE", ""),
		SpreadsheetID:   str("SPREADSHEET_ID", ""),
		SheetName:       str("SHEET_NAME", "Draft Data"),
		CredentialsFile: str("GOOGLE_CREDENTIALS_FILE", ""),
		CSVOutput:       str("CSV_OUTPUT", ""),
		DatabaseURL:     str("DATABASE_URL", ""),
		HTTPAddr:        str("HTTP_ADDR", ":8080"),
		LogLevel:        str("LOG_LEVEL", "info"),
		ParseWorkers:    num("PARSE_WORKERS", 4),
		SyncInterval:    time.Duration(num("SYNC_INTERVAL_MIN", 0)) * time.Minute,
	}
	if cfg.ParseWorkers == 0 {
		cfg.ParseWorkers = 1
	}
	return cfg, firstErr
}
