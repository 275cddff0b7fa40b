// Package storage defines the persistence interface for discovered
// candidates, analyses, matches, and the notification log.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pkgscout/pkgscout/internal/storage/sqlite"
	"github.com/pkgscout/pkgscout/internal/types"
)

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint: a candidate already discovered, or a second analysis for
// the same candidate. Callers treat it as "already being processed".
var ErrDuplicate = sqlite.ErrDuplicate

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = sqlite.ErrNotFound

// Storage is the persistence surface the pipeline writes through.
type Storage interface {
	// Candidates. CreateCandidate returns ErrDuplicate when
	// (owner, name) already exists; candidates are never updated.
	CreateCandidate(ctx context.Context, c *types.Candidate) error
	CandidateExists(ctx context.Context, owner, name string) (bool, error)
	GetCandidate(ctx context.Context, owner, name string) (*types.Candidate, error)

	// Analyses. One per candidate; a second insert returns ErrDuplicate.
	CreateAnalysis(ctx context.Context, a *types.Analysis) error
	GetAnalysis(ctx context.Context, candidateID string) (*types.Analysis, error)

	// Matches. Immutable once persisted.
	CreateMatch(ctx context.Context, m *types.Match) error
	GetMatchesByCandidate(ctx context.Context, candidateID string) ([]*types.Match, error)

	// Notification log. Append-only; NotifiedSince answers the cooldown
	// question for a target.
	CreateNotification(ctx context.Context, n *types.Notification) error
	NotifiedSince(ctx context.Context, owner, name string, since time.Time) (bool, error)
	LastNotification(ctx context.Context, owner, name string) (*types.Notification, error)

	// Reporting aggregates.
	GetStats(ctx context.Context) (*types.Stats, error)

	Close() error
}

// Config holds database configuration.
type Config struct {
	// Path is the SQLite database file path. The special value
	// ":memory:" creates an in-memory database, useful for tests.
	Path string
}

// New creates the SQLite storage backend.
func New(cfg *Config) (Storage, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	return sqlite.New(cfg.Path)
}
