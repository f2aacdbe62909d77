// Package memstore is an in-memory sample store. It backs unit tests
// and the no-persistence configuration; the DuckDB store is the
// production engine.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/perchlab/perch/internal/model"
)

type seriesKey struct {
	plugin string
	group  string
}

// Store keeps samples per plugin/group under a single RWMutex. Writes
// to different groups never conflict beyond lock contention, and one
// persisted sample is visible to readers atomically.
type Store struct {
	mu     sync.RWMutex
	series map[seriesKey][]model.Sample
}

// New returns an empty store.
func New() *Store {
	return &Store{series: make(map[seriesKey][]model.Sample)}
}

// Persist appends one immutable sample.
func (s *Store) Persist(ctx context.Context, plugin, group string, sample model.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	copied := model.Sample{
		CreatedAt: sample.CreatedAt,
		Values:    append([]model.Value(nil), sample.Values...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := seriesKey{plugin: plugin, group: group}
	s.series[key] = append(s.series[key], copied)
	return nil
}

// Samples returns samples with gte <= CreatedAt <= lte, ascending by
// CreatedAt. Insertion order is not assumed: retries may persist out
// of order, so results are sorted on read.
func (s *Store) Samples(ctx context.Context, plugin, group string, gte, lte time.Time) ([]model.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	stored := s.series[seriesKey{plugin: plugin, group: group}]
	var out []model.Sample
	for _, sample := range stored {
		if sample.CreatedAt.Before(gte) || sample.CreatedAt.After(lte) {
			continue
		}
		out = append(out, sample)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Count reports the number of stored samples across all series.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, samples := range s.series {
		n += len(samples)
	}
	return n
}

// TotalSampleCount mirrors the DuckDB store's health counter.
func (s *Store) TotalSampleCount(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(s.Count()), nil
}

// Close is a no-op; it satisfies model.SampleStore.
func (s *Store) Close() error { return nil }
