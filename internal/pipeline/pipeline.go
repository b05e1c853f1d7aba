package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/engine"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/grid"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/tracker"
)

var (
	ErrDiscover = errors.New("discover series")
	ErrSink     = errors.New("write report rows")
	ErrTracker  = errors.New("persist processed series")
)

// Source is the remote side of a sync pass. *grid.Client satisfies it.
type Source interface {
	Discover(ctx context.Context, now time.Time, lookback time.Duration) ([]grid.Series, error)
	ListFiles(ctx context.Context, seriesID string) ([]grid.File, error)
	Download(ctx context.Context, dir, seriesID string, f grid.File) (grid.Download, error)
}

// MatchParser turns one downloaded file into a parsed match. *engine.Parser
// satisfies it.
type MatchParser interface {
	ParseFile(path string) (*engine.ParsedMatch, error)
}

type Config struct {
	DownloadsDir   string
	LookbackMonths int
	Workers        int
}

type Pipeline struct {
	source  Source
	parser  MatchParser
	tracker tracker.Tracker
	sink    report.Sink
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

func New(source Source, parser MatchParser, tr tracker.Tracker, sink report.Sink, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = 2
	}
	return &Pipeline{
		source:  source,
		parser:  parser,
		tracker: tr,
		sink:    sink,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Summary describes one sync pass. Failures holds every per-series and
// per-match error; they never fail the run on their own.
type Summary struct {
	RunID      string
	Discovered int
	New        int
	Files      int
	Parsed     int
	Rows       int
	Marked     int
	Failures   error
}

type job struct {
	series grid.Series
	path   string
	cached bool
}

type result struct {
	match *engine.ParsedMatch
	err   error
}

// Run performs one sync pass: discover, download, parse, write rows, mark
// processed. The returned error is set only for discovery, sink or tracker
// failures. A sink failure leaves the tracker unsaved so the series are
// retried; a partial fan-out failure does not.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", sum.RunID))
	log.Info("sync pass started")

	now := p.now()
	series, err := p.source.Discover(ctx, now, grid.MonthsBack(now, p.cfg.LookbackMonths))
	if err != nil {
		return sum, fmt.Errorf("%w: %v", ErrDiscover, err)
	}
	sum.Discovered = len(series)

	var failures error
	fresh := make([]grid.Series, 0, len(series))
	for _, s := range series {
		done, err := p.tracker.IsProcessed(ctx, s.ID)
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("series %s: %w", s.ID, err))
			continue
		}
		if !done {
			fresh = append(fresh, s)
		}
	}
	sum.New = len(fresh)
	log.Info("new scrim series", zap.Int("discovered", sum.Discovered), zap.Int("new", sum.New))
	if len(fresh) == 0 {
		// retries rows a fan-out sink queued on an earlier pass
		partial, err := p.write(ctx, log, nil)
		sum.Failures = multierr.Append(failures, partial)
		return sum, err
	}

	jobs, dlErr := p.download(ctx, log, fresh)
	failures = multierr.Append(failures, dlErr)
	sum.Files = len(jobs)
	if err := ctx.Err(); err != nil {
		sum.Failures = failures
		return sum, err
	}

	results := p.parseAll(ctx, log, jobs)

	var rows []report.Row
	produced := map[string]job{}
	teams := map[string][2]string{}
	for i, res := range results {
		j := jobs[i]
		if res.err != nil {
			failures = multierr.Append(failures, fmt.Errorf("series %s: %w", j.series.ID, res.err))
			continue
		}
		sum.Parsed++
		rows = append(rows, report.Format(report.SeriesMeta{ID: j.series.ID, ScheduledAt: j.series.ScheduledAt}, res.match))
		if _, ok := produced[j.series.ID]; !ok {
			produced[j.series.ID] = j
			teams[j.series.ID] = [2]string{res.match.TeamOne.Name, res.match.TeamTwo.Name}
		}
	}
	sum.Rows = len(rows)
	sum.Failures = failures

	partial, err := p.write(ctx, log, rows)
	failures = multierr.Append(failures, partial)
	sum.Failures = failures
	if err != nil {
		return sum, err
	}

	for _, s := range fresh {
		j, ok := produced[s.ID]
		if !ok {
			continue
		}
		names := teams[s.ID]
		rec := tracker.Record{SeriesID: s.ID, ProcessedAt: now, FilePath: j.path, Team1: names[0], Team2: names[1]}
		if err := p.tracker.MarkProcessed(ctx, rec); err != nil {
			return sum, fmt.Errorf("%w: %v", ErrTracker, err)
		}
		sum.Marked++
	}
	if err := p.tracker.Save(ctx); err != nil {
		return sum, fmt.Errorf("%w: %v", ErrTracker, err)
	}

	log.Info("sync pass finished",
		zap.Int("files", sum.Files),
		zap.Int("parsed", sum.Parsed),
		zap.Int("rows", sum.Rows),
		zap.Int("marked", sum.Marked),
		zap.Int("failures", len(multierr.Errors(failures))))
	return sum, nil
}

// write hands rows to the sink. A batch no sink accepted is returned as a
// fatal ErrSink so the tracker stays unsaved. A batch some sinks accepted
// is reported as a failure only; the series are marked because the sink
// retries the rest itself.
func (p *Pipeline) write(ctx context.Context, log *zap.Logger, rows []report.Row) (partial, fatal error) {
	err := p.sink.Append(ctx, rows)
	switch {
	case err == nil:
		if len(rows) > 0 {
			log.Info("rows written", zap.Int("rows", len(rows)))
		}
		return nil, nil
	case errors.Is(err, report.ErrPartialWrite):
		log.Warn("some sinks failed, rows queued for retry", zap.Int("rows", len(rows)), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSink, err), nil
	default:
		log.Error("sink failed, processed series not saved", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSink, err)
	}
}

// download lists and fetches livestats files one series at a time. Per-series
// errors are collected and the series is skipped.
func (p *Pipeline) download(ctx context.Context, log *zap.Logger, series []grid.Series) ([]job, error) {
	var jobs []job
	var errs error
	for _, s := range series {
		if ctx.Err() != nil {
			break
		}
		files, err := p.source.ListFiles(ctx, s.ID)
		if err != nil {
			log.Warn("listing files failed", zap.String("series_id", s.ID), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("series %s: %w", s.ID, err))
			continue
		}
		live := grid.LivestatsFiles(files)
		if len(live) == 0 {
			log.Debug("no livestats files", zap.String("series_id", s.ID))
			continue
		}
		for _, f := range live {
			dl, err := p.source.Download(ctx, p.cfg.DownloadsDir, s.ID, f)
			if err != nil {
				log.Warn("download failed",
					zap.String("series_id", s.ID), zap.String("file_id", f.ID), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("series %s file %s: %w", s.ID, f.ID, err))
				continue
			}
			jobs = append(jobs, job{series: s, path: dl.Path, cached: dl.Cached})
		}
	}
	return jobs, errs
}

// parseAll parses jobs with bounded parallelism. Results keep the job order.
func (p *Pipeline) parseAll(ctx context.Context, log *zap.Logger, jobs []job) []result {
	results := make([]result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = result{err: err}
				return nil
			}
			m, err := p.parser.ParseFile(j.path)
			if err != nil {
				log.Warn("parse failed", zap.String("series_id", j.series.ID), zap.String("path", j.path), zap.Error(err))
				results[i] = result{err: err}
				return nil
			}
			log.Debug("parsed match",
				zap.String("series_id", j.series.ID),
				zap.Bool("cached", j.cached),
				zap.Int("actions", len(m.Actions)),
				zap.Int("skipped_lines", m.SkippedLines))
			results[i] = result{match: m}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
