package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkgscout/pkgscout/internal/types"
)

// CreateAnalysis inserts the one-and-only analysis for a candidate.
// A second insert for the same candidate returns ErrDuplicate; the
// caller treats that as a concurrent run having gotten there first.
func (s *Store) CreateAnalysis(ctx context.Context, a *types.Analysis) error {
	features, err := json.Marshal(a.Features)
	if err != nil {
		return fmt.Errorf("encoding features: %w", err)
	}
	recommendations, err := json.Marshal(a.Recommendations)
	if err != nil {
		return fmt.Errorf("encoding recommendations: %w", err)
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, candidate_id, score, docs, tests, activity, code,
			maintained, category, features, recommendations, used_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.CandidateID,
		a.Score,
		a.Docs,
		a.Tests,
		a.Activity,
		a.Code,
		boolToInt(a.Maintained),
		string(a.Category),
		string(features),
		string(recommendations),
		boolToInt(a.UsedDefault),
		createdAt.UTC().Format(time.RFC3339),
	)
	return wrapInsertErr("creating analysis", err)
}

// GetAnalysis fetches the analysis for a candidate; ErrNotFound when
// the candidate has none.
func (s *Store) GetAnalysis(ctx context.Context, candidateID string) (*types.Analysis, error) {
	var (
		a               types.Analysis
		maintained      int
		usedDefault     int
		category        string
		features        string
		recommendations string
		createdAt       string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, candidate_id, score, docs, tests, activity, code,
			maintained, category, features, recommendations, used_default, created_at
		FROM analyses WHERE candidate_id = ?
	`, candidateID).Scan(
		&a.ID, &a.CandidateID, &a.Score, &a.Docs, &a.Tests, &a.Activity, &a.Code,
		&maintained, &category, &features, &recommendations, &usedDefault, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}

	a.Maintained = maintained != 0
	a.UsedDefault = usedDefault != 0
	a.Category = types.Category(category)
	a.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(features), &a.Features); err != nil {
		return nil, fmt.Errorf("decoding features: %w", err)
	}
	if err := json.Unmarshal([]byte(recommendations), &a.Recommendations); err != nil {
		return nil, fmt.Errorf("decoding recommendations: %w", err)
	}
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
