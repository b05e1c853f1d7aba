package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const livestatsDir = "livestats"

type File struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	FileName    string `json:"fileName"`
	FullURL     string `json:"fullURL"`
}

// IsRiotLivestats reports whether the file is a riot livestats stream.
func (f File) IsRiotLivestats() bool {
	d := strings.ToLower(f.Description)
	return strings.Contains(d, "riot") && strings.Contains(d, "livestats")
}

// ListFiles returns the downloadable files of a series.
func (c *Client) ListFiles(ctx context.Context, seriesID string) ([]File, error) {
	resp, err := c.get(ctx, c.filesURL+"/list/"+url.PathEscape(seriesID))
	if err != nil {
		return nil, fmt.Errorf("list files for series %s: %w", seriesID, err)
	}
	defer resp.Body.Close()

	var body struct {
		Files []File `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode file list for series %s: %w", seriesID, err)
	}
	return body.Files, nil
}

func LivestatsFiles(files []File) []File {
	var out []File
	for _, f := range files {
		if f.IsRiotLivestats() {
			out = append(out, f)
		}
	}
	return out
}

// LocalPath is where a series file is stored under dir.
func LocalPath(dir, seriesID string, f File) string {
	id := f.ID
	if id == "" {
		id = "unknown"
	}
	return filepath.Join(dir, livestatsDir, fmt.Sprintf("series_%s_%s.jsonl", seriesID, id))
}

type Download struct {
	Path   string
	Cached bool
}

// Download fetches f into dir unless it is already there. Network downloads
// are spaced by the client's pace.
func (c *Client) Download(ctx context.Context, dir, seriesID string, f File) (Download, error) {
	path := LocalPath(dir, seriesID, f)
	if _, err := os.Stat(path); err == nil {
		c.logger.Debug("file already downloaded", zap.String("path", path))
		return Download{Path: path, Cached: true}, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Download{}, err
	}

	if f.FullURL == "" {
		return Download{}, fmt.Errorf("file %s of series %s has no download url", f.ID, seriesID)
	}
	if err := c.waitTurn(ctx); err != nil {
		return Download{}, err
	}
	defer c.markDownload()

	c.logger.Info("downloading livestats", zap.String("series_id", seriesID), zap.String("file_id", f.ID))
	resp, err := c.get(ctx, f.FullURL)
	if err != nil {
		return Download{}, fmt.Errorf("download %s: %w", f.ID, err)
	}
	defer resp.Body.Close()

	if err := writeAtomic(path, resp.Body); err != nil {
		return Download{}, fmt.Errorf("save %s: %w", path, err)
	}
	return Download{Path: path}, nil
}

// writeAtomic writes to a temp file in the target directory and renames it,
// so an interrupted download never looks like a cache hit.
func writeAtomic(path string, r io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
