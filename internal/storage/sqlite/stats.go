package sqlite

import (
	"context"
	"fmt"

	"github.com/pkgscout/pkgscout/internal/types"
)

// GetStats aggregates store contents for reporting.
func (s *Store) GetStats(ctx context.Context) (*types.Stats, error) {
	stats := &types.Stats{ByCategory: make(map[string]int)}

	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM candidates),
			(SELECT COUNT(*) FROM analyses),
			(SELECT COUNT(*) FROM matches),
			(SELECT COUNT(*) FROM notifications),
			(SELECT COALESCE(AVG(score), 0) FROM analyses)
	`)
	if err := row.Scan(&stats.Candidates, &stats.Analyses, &stats.Matches,
		&stats.Notifications, &stats.AvgScore); err != nil {
		return nil, fmt.Errorf("aggregating stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM analyses GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("aggregating categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}
