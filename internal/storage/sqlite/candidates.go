package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkgscout/pkgscout/internal/types"
)

// CreateCandidate inserts a discovery snapshot. A second insert for the
// same (owner, name) returns ErrDuplicate.
func (s *Store) CreateCandidate(ctx context.Context, c *types.Candidate) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid candidate: %w", err)
	}

	discoveredAt := c.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, owner, name, url, stars, forks, updated_at, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.Owner,
		c.Name,
		c.URL,
		c.Stars,
		c.Forks,
		c.UpdatedAt.UTC().Format(time.RFC3339),
		discoveredAt.UTC().Format(time.RFC3339),
	)
	return wrapInsertErr("creating candidate", err)
}

// CandidateExists reports whether (owner, name) is already known.
func (s *Store) CandidateExists(ctx context.Context, owner, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candidates WHERE owner = ? AND name = ?`,
		owner, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking candidate existence: %w", err)
	}
	return count > 0, nil
}

// GetCandidate fetches one candidate by target; ErrNotFound when absent.
func (s *Store) GetCandidate(ctx context.Context, owner, name string) (*types.Candidate, error) {
	var (
		c            types.Candidate
		updatedAt    string
		discoveredAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, url, stars, forks, updated_at, discovered_at
		FROM candidates WHERE owner = ? AND name = ?
	`, owner, name).Scan(
		&c.ID, &c.Owner, &c.Name, &c.URL, &c.Stars, &c.Forks, &updatedAt, &discoveredAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting candidate: %w", err)
	}

	c.UpdatedAt = parseTime(updatedAt)
	c.DiscoveredAt = parseTime(discoveredAt)
	return &c, nil
}

// parseTime decodes the RFC3339 strings this store writes; zero time on
// anything unparsable.
func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
