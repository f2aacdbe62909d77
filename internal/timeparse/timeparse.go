// Package timeparse turns query-string time bounds into a concrete
// [gte, lte] window. Absent bounds get defaults; explicit but
// unparsable bounds fail with ErrParse so callers can tell a bad
// range from an empty one.
package timeparse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perchlab/perch/internal/model"
)

// ErrParse marks an explicit bound that could not be parsed. It is
// never returned for an absent bound.
var ErrParse = errors.New("unparsable time bound")

// layouts accepted for explicit bounds, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// Parse parses one explicit bound.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrParse)
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrParse, s)
}

// Window resolves the optional gte/lte strings against the defaults:
// an absent gte means now minus the default query window, an absent
// lte means now. An explicit-but-invalid bound fails the whole window;
// defaults are never substituted for input the caller actually gave.
func Window(gteStr, lteStr string, now time.Time) (gte, lte time.Time, err error) {
	if gteStr == "" {
		gte = now.Add(-model.DefaultQueryWindow)
	} else if gte, err = Parse(gteStr); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("gte: %w", err)
	}

	if lteStr == "" {
		lte = now
	} else if lte, err = Parse(lteStr); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("lte: %w", err)
	}

	return gte, lte, nil
}
