package timeparse

import (
	"errors"
	"testing"
	"time"

	"github.com/perchlab/perch/internal/model"
)

func TestParseAcceptedLayouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"RFC3339", "2026-08-25T10:30:45Z"},
		{"RFC3339Nano", "2026-08-25T10:30:45.123456789Z"},
		{"no zone", "2026-08-25T10:30:45"},
		{"space separated", "2026-08-25 10:30:45"},
		{"minutes only", "2026-08-25 10:30"},
		{"date only", "2026-08-25"},
		{"slashed date", "2026/08/25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if got.IsZero() {
				t.Fatalf("Parse(%q) returned zero time", tt.input)
			}
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"yesterday", "25-08-2026", "1m ago", "   "} {
		if _, err := Parse(input); !errors.Is(err, ErrParse) {
			t.Errorf("Parse(%q): got %v, want ErrParse", input, err)
		}
	}
}

func TestWindowDefaults(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	gte, lte, err := Window("", "", now)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if !lte.Equal(now) {
		t.Errorf("lte = %v, want now", lte)
	}
	if want := now.Add(-model.DefaultQueryWindow); !gte.Equal(want) {
		t.Errorf("gte = %v, want %v", gte, want)
	}
}

func TestWindowExplicitInvalidBoundFails(t *testing.T) {
	now := time.Now()

	// An explicit bad bound must fail, never fall back to defaults.
	if _, _, err := Window("not-a-date", "", now); !errors.Is(err, ErrParse) {
		t.Errorf("bad gte: got %v, want ErrParse", err)
	}
	if _, _, err := Window("", "not-a-date", now); !errors.Is(err, ErrParse) {
		t.Errorf("bad lte: got %v, want ErrParse", err)
	}
}

func TestWindowExplicitBounds(t *testing.T) {
	now := time.Now()
	gte, lte, err := Window("2026-08-20", "2026-08-25 06:30:00", now)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if gte.After(lte) {
		t.Fatalf("gte %v after lte %v", gte, lte)
	}
	if gte.Day() != 20 || lte.Hour() != 6 || lte.Minute() != 30 {
		t.Fatalf("window = [%v, %v]", gte, lte)
	}
}
