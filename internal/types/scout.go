// Package types defines the core domain model shared across pkgscout:
// discovered candidates, their quality analyses, request matches, and
// the notification log.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Candidate is a package repository discovered on the hosting platform.
// It is an immutable snapshot of discovery-time metadata: once persisted
// it is never updated, and (Owner, Name) is unique in the store.
type Candidate struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Stars        int       `json:"stars"`
	Forks        int       `json:"forks"`
	UpdatedAt    time.Time `json:"updated_at"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// FullName returns the owner/name form used in queries and log lines.
func (c *Candidate) FullName() string {
	return c.Owner + "/" + c.Name
}

// Validate checks required candidate fields.
func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return fmt.Errorf("owner is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Category buckets a scored package by its primary purpose.
// The scoring model is asked for one of the constants below, but the
// store accepts whatever string comes back; only an empty category is
// coerced to CategoryUtility.
type Category string

const (
	CategoryCompute Category = "compute"
	CategoryData    Category = "data"
	CategoryAPI     Category = "api"
	CategoryTools   Category = "tools"
	CategoryUtility Category = "utility"
)

// IsKnown reports whether the category is one of the documented values.
func (c Category) IsKnown() bool {
	switch c {
	case CategoryCompute, CategoryData, CategoryAPI, CategoryTools, CategoryUtility:
		return true
	}
	return false
}

// Analysis is the quality assessment of one candidate. Exactly one
// analysis exists per candidate; re-analysis is rejected by the store's
// uniqueness constraint.
type Analysis struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`

	// Score is the overall quality score in [0,10]; the remaining four
	// are sub-scores on the same scale.
	Score    float64 `json:"score"`
	Docs     float64 `json:"docs"`
	Tests    float64 `json:"tests"`
	Activity float64 `json:"activity"`
	Code     float64 `json:"code"`

	Maintained      bool     `json:"maintained"`
	Category        Category `json:"category"`
	Features        []string `json:"features"`
	Recommendations []string `json:"recommendations"`

	// UsedDefault is true when the scoring response could not be parsed
	// and the neutral default was substituted.
	UsedDefault bool `json:"used_default,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DefaultAnalysis returns the neutral assessment substituted when the
// scoring service response cannot be parsed: every score 5.0, not
// maintained, utility category, no features or recommendations.
func DefaultAnalysis(candidateID string) *Analysis {
	return &Analysis{
		CandidateID:     candidateID,
		Score:           5.0,
		Docs:            5.0,
		Tests:           5.0,
		Activity:        5.0,
		Code:            5.0,
		Maintained:      false,
		Category:        CategoryUtility,
		Features:        []string{},
		Recommendations: []string{},
		UsedDefault:     true,
	}
}

// MatchStatus tracks the lifecycle of a persisted match.
type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchNotified MatchStatus = "notified"
	MatchRejected MatchStatus = "rejected"
)

// Match relates a candidate to one open external request (issue) the
// relevance judge accepted. Immutable once persisted.
type Match struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`

	IssueOwner  string `json:"issue_owner"`
	IssueRepo   string `json:"issue_repo"`
	IssueNumber int    `json:"issue_number"`
	IssueURL    string `json:"issue_url"`
	IssueTitle  string `json:"issue_title"`

	// Score is the judged relevance in [0,1]; matches are only persisted
	// at or above the acceptance threshold.
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`

	// Features snapshots the candidate's detected feature list at match
	// time, since the analysis row may gain context the match predates.
	Features []string `json:"features"`

	Status    MatchStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// Notification is one row of the append-only outbound-notification log.
// The existence of a recent row for (Owner, Name) is the cooldown
// signal; there is no separate counter.
type Notification struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	CandidateID string    `json:"candidate_id,omitempty"`
	IssueNumber int       `json:"issue_number"`
	IssueURL    string    `json:"issue_url"`
	SentAt      time.Time `json:"sent_at"`
}

// Stats aggregates store contents for reporting.
type Stats struct {
	Candidates    int            `json:"candidates"`
	Analyses      int            `json:"analyses"`
	Matches       int            `json:"matches"`
	Notifications int            `json:"notifications"`
	AvgScore      float64        `json:"avg_score"`
	ByCategory    map[string]int `json:"by_category"`
}
