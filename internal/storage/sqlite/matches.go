package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkgscout/pkgscout/internal/types"
)

// CreateMatch persists one accepted candidate/request match.
func (s *Store) CreateMatch(ctx context.Context, m *types.Match) error {
	features, err := json.Marshal(m.Features)
	if err != nil {
		return fmt.Errorf("encoding match features: %w", err)
	}

	status := m.Status
	if status == "" {
		status = types.MatchPending
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matches (id, candidate_id, issue_owner, issue_repo, issue_number,
			issue_url, issue_title, score, reason, features, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID,
		m.CandidateID,
		m.IssueOwner,
		m.IssueRepo,
		m.IssueNumber,
		m.IssueURL,
		m.IssueTitle,
		m.Score,
		m.Reason,
		string(features),
		string(status),
		createdAt.UTC().Format(time.RFC3339),
	)
	return wrapInsertErr("creating match", err)
}

// GetMatchesByCandidate returns all persisted matches for a candidate,
// newest first.
func (s *Store) GetMatchesByCandidate(ctx context.Context, candidateID string) ([]*types.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, candidate_id, issue_owner, issue_repo, issue_number,
			issue_url, issue_title, score, reason, features, status, created_at
		FROM matches WHERE candidate_id = ?
		ORDER BY created_at DESC, id
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*types.Match
	for rows.Next() {
		var (
			m         types.Match
			features  string
			status    string
			createdAt string
		)
		if err := rows.Scan(
			&m.ID, &m.CandidateID, &m.IssueOwner, &m.IssueRepo, &m.IssueNumber,
			&m.IssueURL, &m.IssueTitle, &m.Score, &m.Reason, &features, &status, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &m.Features); err != nil {
			return nil, fmt.Errorf("decoding match features: %w", err)
		}
		m.Status = types.MatchStatus(status)
		m.CreatedAt = parseTime(createdAt)
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
