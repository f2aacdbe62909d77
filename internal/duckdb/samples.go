package duckdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/perchlab/perch/internal/model"
)

// Persist appends one sample for the given plugin and field group.
func (s *Store) Persist(ctx context.Context, plugin, group string, sample model.Sample) error {
	points, err := json.Marshal(sample.Values)
	if err != nil {
		return fmt.Errorf("encoding points: %w", err)
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	_, err = s.db.ExecContext(qctx,
		"INSERT INTO samples (plugin, field_group, created_at, points) VALUES (?, ?, ?, ?)",
		plugin, group, sample.CreatedAt.UTC(), string(points),
	)
	if err != nil {
		return fmt.Errorf("inserting sample for %s/%s: %w", plugin, group, err)
	}
	return nil
}

// Samples returns the samples recorded for plugin/group within the
// inclusive [gte, lte] window, ordered by creation time ascending.
func (s *Store) Samples(ctx context.Context, plugin, group string, gte, lte time.Time) ([]model.Sample, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(qctx,
		`SELECT created_at, CAST(points AS VARCHAR) FROM samples
		 WHERE plugin = ? AND field_group = ? AND created_at >= ? AND created_at <= ?
		 ORDER BY created_at ASC`,
		plugin, group, gte.UTC(), lte.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying samples for %s/%s: %w", plugin, group, err)
	}
	defer rows.Close()

	var samples []model.Sample
	for rows.Next() {
		var (
			createdAt time.Time
			points    string
		)
		if err := rows.Scan(&createdAt, &points); err != nil {
			return nil, fmt.Errorf("scanning sample row: %w", err)
		}
		var values []model.Value
		if err := json.Unmarshal([]byte(points), &values); err != nil {
			return nil, fmt.Errorf("decoding points for %s/%s: %w", plugin, group, err)
		}
		samples = append(samples, model.Sample{CreatedAt: createdAt, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sample rows: %w", err)
	}
	return samples, nil
}

// TotalSampleCount reports the number of rows in the samples table.
func (s *Store) TotalSampleCount(ctx context.Context) (int64, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(qctx, "SELECT COUNT(*) FROM samples").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting samples: %w", err)
	}
	return count, nil
}

// DeleteBefore removes samples created before the cutoff and reports
// how many rows were deleted.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(qctx,
		"DELETE FROM samples WHERE created_at < ?", cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired samples: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return deleted, nil
}
