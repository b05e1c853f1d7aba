package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"
)

var ErrSinkWrite = errors.New("write report rows")

// Sink receives formatted rows. Append must leave previously written rows
// in place.
type Sink interface {
	Append(ctx context.Context, rows []Row) error
}

// CSVSink appends rows to a local file, writing the header when the file
// is new or empty.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Append(ctx context.Context, rows []Row) (err error) {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header().Strings()); err != nil {
			return fmt.Errorf("%w: %v", ErrSinkWrite, err)
		}
	}
	for _, r := range rows {
		if err := w.Write(r.Strings()); err != nil {
			return fmt.Errorf("%w: %v", ErrSinkWrite, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return nil
}

// Multi fans rows out to every sink. All sinks are attempted. When some
// sinks accept a batch and others fail, the failed sinks keep the batch
// queued and receive it ahead of the next Append, and the returned error
// wraps ErrPartialWrite. When no sink accepts the batch nothing is queued.
func Multi(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, queued: make([][]Row, len(sinks))}
}

// ErrPartialWrite marks a batch that reached at least one sink. The rows
// are queued for the sinks that failed.
var ErrPartialWrite = errors.New("rows queued for failed sinks")

type MultiSink struct {
	mu     sync.Mutex
	sinks  []Sink
	queued [][]Row
}

// Append with no rows only retries queued rows.
func (m *MultiSink) Append(ctx context.Context, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error
	accepted := 0
	failed := make([]bool, len(m.sinks))
	for i, s := range m.sinks {
		batch := append(append([]Row(nil), m.queued[i]...), rows...)
		if len(batch) == 0 {
			continue
		}
		if err := s.Append(ctx, batch); err != nil {
			errs = multierr.Append(errs, err)
			failed[i] = true
			continue
		}
		m.queued[i] = nil
		accepted++
	}
	if errs == nil {
		return nil
	}
	if len(rows) > 0 && accepted == 0 {
		return errs
	}
	for i, f := range failed {
		if f {
			m.queued[i] = append(m.queued[i], rows...)
		}
	}
	return fmt.Errorf("%w: %w", ErrPartialWrite, errs)
}

// Queued reports how many rows wait for each sink, in sink order.
func (m *MultiSink) Queued() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.queued))
	for i, q := range m.queued {
		out[i] = len(q)
	}
	return out
}
