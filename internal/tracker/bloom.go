package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	defaultCapacity = 100000
	falsePositive   = 0.001
)

// Bloom fronts a backing tracker with a bloom filter. A filter miss means
// the series is definitely new and the backing tracker is not consulted.
type Bloom struct {
	backing Tracker

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewBloom seeds the filter from every id the backing tracker already holds.
func NewBloom(ctx context.Context, backing Tracker) (*Bloom, error) {
	ids, err := backing.Processed(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed bloom filter: %w", err)
	}
	n := uint(defaultCapacity)
	if uint(len(ids))*2 > n {
		n = uint(len(ids)) * 2
	}
	b := &Bloom{
		backing: backing,
		filter:  bloom.NewWithEstimates(n, falsePositive),
	}
	for _, id := range ids {
		b.filter.AddString(id)
	}
	return b, nil
}

func (b *Bloom) IsProcessed(ctx context.Context, seriesID string) (bool, error) {
	b.mu.RLock()
	maybe := b.filter.TestString(seriesID)
	b.mu.RUnlock()
	if !maybe {
		return false, nil
	}
	return b.backing.IsProcessed(ctx, seriesID)
}

func (b *Bloom) MarkProcessed(ctx context.Context, rec Record) error {
	if err := b.backing.MarkProcessed(ctx, rec); err != nil {
		return err
	}
	b.mu.Lock()
	b.filter.AddString(rec.SeriesID)
	b.mu.Unlock()
	return nil
}

func (b *Bloom) Processed(ctx context.Context) ([]string, error) {
	return b.backing.Processed(ctx)
}

func (b *Bloom) Save(ctx context.Context) error {
	return b.backing.Save(ctx)
}
