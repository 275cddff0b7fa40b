// Package matcher searches open external requests for overlap with a
// candidate's detected features and judges each hit's relevance with a
// completion call.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pkgscout/pkgscout/internal/forge"
	"github.com/pkgscout/pkgscout/internal/llm"
	"github.com/pkgscout/pkgscout/internal/types"
)

const (
	// maxSearchResults caps the issue-search page size.
	maxSearchResults = 20

	// maxQueryFeatures caps how many feature phrases go into the search
	// query; long OR chains blow the search API's query length limit.
	maxQueryFeatures = 5

	// maxBodyChars bounds the issue body embedded in the judge prompt.
	maxBodyChars = 1500
)

// DefaultThreshold is the judged-relevance score at or above which a
// match is persisted.
const DefaultThreshold = 0.7

// Matcher finds and judges candidate/request matches.
type Matcher struct {
	exec      llm.Executor
	forge     forge.Client
	threshold float64
}

// New creates a matcher. A non-positive threshold falls back to
// DefaultThreshold.
func New(exec llm.Executor, fc forge.Client, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{exec: exec, forge: fc, threshold: threshold}
}

// FindMatches searches open requests overlapping the candidate's
// features and returns the ones judged relevant at or above the
// threshold (equality qualifies). An empty feature list short-circuits
// to no matches; a failed search yields an empty list rather than
// failing the candidate.
func (m *Matcher) FindMatches(ctx context.Context, cand *types.Candidate, analysis *types.Analysis) []types.Match {
	if len(analysis.Features) == 0 {
		return nil
	}

	query := buildQuery(analysis.Features)
	issues, err := m.forge.SearchIssues(ctx, query, maxSearchResults)
	if err != nil {
		slog.Warn("request search failed, skipping matching",
			"candidate", cand.FullName(), "error", err)
		return nil
	}

	var matches []types.Match
	for _, issue := range issues {
		// The candidate's own issues are not requests for it.
		if issue.Owner == cand.Owner && issue.Repo == cand.Name {
			continue
		}

		score, reason := m.judgeRelevance(ctx, cand, analysis, issue)
		if score < m.threshold {
			continue
		}

		matches = append(matches, types.Match{
			ID:          uuid.NewString(),
			CandidateID: cand.ID,
			IssueOwner:  issue.Owner,
			IssueRepo:   issue.Repo,
			IssueNumber: issue.Number,
			IssueURL:    issue.URL,
			IssueTitle:  issue.Title,
			Score:       score,
			Reason:      reason,
			Features:    append([]string(nil), analysis.Features...),
			Status:      types.MatchPending,
		})
	}

	return matches
}

// relevancePayload is the fixed shape the judge prompt asks for.
type relevancePayload struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// judgeRelevance asks the completion service whether the candidate
// answers the request. Any failure defaults to score 0.0, which never
// clears the threshold.
func (m *Matcher) judgeRelevance(ctx context.Context, cand *types.Candidate, analysis *types.Analysis, issue forge.Issue) (float64, string) {
	prompt := buildJudgePrompt(cand, analysis, issue)

	text, err := m.exec.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("relevance call failed",
			"candidate", cand.FullName(),
			"issue", fmt.Sprintf("%s/%s#%d", issue.Owner, issue.Repo, issue.Number),
			"error", err)
		return 0.0, ""
	}

	payload := llm.ExtractOrDefault(text, relevancePayload{Score: 0.0})
	if payload.Score < 0 {
		payload.Score = 0
	}
	if payload.Score > 1 {
		payload.Score = 1
	}
	return payload.Score, payload.Reason
}

// buildQuery ORs the feature phrases into an open-issue search.
func buildQuery(features []string) string {
	n := len(features)
	if n > maxQueryFeatures {
		n = maxQueryFeatures
	}

	quoted := make([]string, 0, n)
	for _, f := range features[:n] {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf("%q", f))
	}

	return strings.Join(quoted, " OR ") + " is:issue is:open"
}

func buildJudgePrompt(cand *types.Candidate, analysis *types.Analysis, issue forge.Issue) string {
	var b strings.Builder

	b.WriteString("Judge whether this package answers the open request below.\n\n")
	fmt.Fprintf(&b, "Package: %s (%s)\n", cand.FullName(), cand.URL)
	fmt.Fprintf(&b, "Category: %s\n", analysis.Category)
	fmt.Fprintf(&b, "Features: %s\n\n", strings.Join(analysis.Features, ", "))
	fmt.Fprintf(&b, "Request %s/%s#%d: %s\n", issue.Owner, issue.Repo, issue.Number, issue.Title)

	body := issue.Body
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}

	b.WriteString(`
Respond with ONLY a JSON object:
{"score": <relevance 0.0-1.0>, "reason": "<one-sentence justification>"}`)

	return b.String()
}
