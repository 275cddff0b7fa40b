package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkgscout/pkgscout/internal/types"
)

// CreateNotification appends one row to the notification log.
func (s *Store) CreateNotification(ctx context.Context, n *types.Notification) error {
	sentAt := n.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, owner, name, candidate_id, issue_number, issue_url, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID,
		n.Owner,
		n.Name,
		nullable(n.CandidateID),
		n.IssueNumber,
		n.IssueURL,
		sentAt.UTC().Format(time.RFC3339),
	)
	return wrapInsertErr("creating notification", err)
}

// NotifiedSince reports whether the target has a notification row with
// sent_at at or after the given instant. This is the cooldown check:
// there is no separate counter, only the log.
func (s *Store) NotifiedSince(ctx context.Context, owner, name string, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE owner = ? AND name = ? AND sent_at >= ?
	`, owner, name, since.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking notification window: %w", err)
	}
	return count > 0, nil
}

// LastNotification returns the most recent notification for a target;
// ErrNotFound when none has ever been sent.
func (s *Store) LastNotification(ctx context.Context, owner, name string) (*types.Notification, error) {
	var (
		n           types.Notification
		candidateID sql.NullString
		sentAt      string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, candidate_id, issue_number, issue_url, sent_at
		FROM notifications WHERE owner = ? AND name = ?
		ORDER BY sent_at DESC LIMIT 1
	`, owner, name).Scan(
		&n.ID, &n.Owner, &n.Name, &candidateID, &n.IssueNumber, &n.IssueURL, &sentAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting last notification: %w", err)
	}

	n.CandidateID = candidateID.String
	n.SentAt = parseTime(sentAt)
	return &n, nil
}

// nullable maps an empty string onto SQL NULL.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
