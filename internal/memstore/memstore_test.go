package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/perchlab/perch/internal/model"
)

func sample(at time.Time, free, used int64) model.Sample {
	return model.Sample{
		CreatedAt: at,
		Values: []model.Value{
			{Name: "free", Kind: model.KindInt, Int: free},
			{Name: "used", Kind: model.KindInt, Int: used},
		},
	}
}

func TestPersistAndQueryOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	// Out-of-order persists must still read back ascending.
	for _, offset := range []time.Duration{2 * time.Minute, 0, time.Minute} {
		if err := s.Persist(ctx, "disk", "usage", sample(base.Add(offset), 500, 1500)); err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}

	got, err := s.Samples(ctx, "disk", "usage", base, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatalf("samples out of order: %v before %v", got[i].CreatedAt, got[i-1].CreatedAt)
		}
	}
}

func TestQueryBoundsInclusive(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	if err := s.Persist(ctx, "disk", "usage", sample(at, 500, 1500)); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := s.Samples(ctx, "disk", "usage", at, at)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("exact-bound query returned %d samples, want 1", len(got))
	}

	got, err = s.Samples(ctx, "disk", "usage", at.Add(time.Second), at.Add(time.Minute))
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("out-of-range query returned %d samples, want 0", len(got))
	}
}

func TestSeriesAreIndependent(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Now()

	if err := s.Persist(ctx, "disk", "usage", sample(at, 1, 2)); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := s.Samples(ctx, "memory", "usage", at.Add(-time.Hour), at.Add(time.Hour))
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("foreign series returned %d samples", len(got))
	}
}
