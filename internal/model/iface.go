package model

import (
	"context"
	"time"
)

// SampleWriter is the append-only write contract of a sample store.
// Persist must be atomic as observed by any concurrent reader: a
// sample is either fully visible or not visible at all.
type SampleWriter interface {
	Persist(ctx context.Context, plugin, group string, sample Sample) error
}

// SampleReader answers bounded time-range queries. Results carry
// gte <= CreatedAt <= lte (inclusive both ends) ordered ascending by
// CreatedAt. Callers resolve absent bounds before calling; the store
// never substitutes defaults.
type SampleReader interface {
	Samples(ctx context.Context, plugin, group string, gte, lte time.Time) ([]Sample, error)
}

// SampleStore is the full store contract used by the wiring layer.
type SampleStore interface {
	SampleWriter
	SampleReader
	Close() error
}
