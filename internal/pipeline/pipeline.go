// Package pipeline sequences the scan-analyze-match-notify flow for
// one discovery batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkgscout/pkgscout/internal/analyzer"
	"github.com/pkgscout/pkgscout/internal/forge"
	"github.com/pkgscout/pkgscout/internal/matcher"
	"github.com/pkgscout/pkgscout/internal/notify"
	"github.com/pkgscout/pkgscout/internal/storage"
	"github.com/pkgscout/pkgscout/internal/types"
)

// DefaultScoreThreshold gates notifications on overall quality.
const DefaultScoreThreshold = 7.0

// Config tunes one runner.
type Config struct {
	BatchSize      int      // Discovery page size (default 10)
	Topics         []string // Topic filter for repository search
	ScoreThreshold float64  // Minimum analysis score to notify (default 7.0)
	Language       string   // Notification language
}

// Runner owns one pipeline instance. Candidates are processed
// sequentially within a run; overlapping runs share the store and the
// credential pool, never per-run state.
type Runner struct {
	store    storage.Storage
	forge    forge.Client
	analyzer *analyzer.Analyzer
	matcher  *matcher.Matcher
	gate     *notify.Gate
	cfg      Config
}

// New creates a runner.
func New(store storage.Storage, fc forge.Client, an *analyzer.Analyzer, ma *matcher.Matcher, gate *notify.Gate, cfg Config) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = DefaultScoreThreshold
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = []string{"go", "library"}
	}
	return &Runner{
		store:    store,
		forge:    fc,
		analyzer: an,
		matcher:  ma,
		gate:     gate,
		cfg:      cfg,
	}
}

// RunResult reports one batch.
type RunResult struct {
	Discovered int           // New candidates found
	Processed  int           // Candidates fully processed
	Notified   int           // Notifications actually sent
	Duration   time.Duration
}

// Run executes one batch. The returned error is non-nil only when
// discovery itself failed; every other failure is scoped to one
// candidate, logged, and skipped.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	candidates, err := r.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	result.Discovered = len(candidates)

	for i := range candidates {
		cand := &candidates[i]
		notified, err := r.processCandidate(ctx, cand)
		if err != nil {
			slog.Error("candidate processing failed, skipping",
				"candidate", cand.FullName(), "error", err)
			continue
		}
		result.Processed++
		if notified {
			result.Notified++
		}
	}

	result.Duration = time.Since(start)
	slog.Info("pipeline run complete",
		"discovered", result.Discovered,
		"processed", result.Processed,
		"notified", result.Notified,
		"duration", result.Duration)
	return result, nil
}

// discover searches the hosting platform for packages matching the
// topic filter and keeps only targets absent from the store. A search
// failure is fatal to the batch.
func (r *Runner) discover(ctx context.Context) ([]types.Candidate, error) {
	var q strings.Builder
	for i, topic := range r.cfg.Topics {
		if i > 0 {
			q.WriteByte(' ')
		}
		q.WriteString("topic:" + topic)
	}

	repos, err := r.forge.SearchRepositories(ctx, q.String(), "updated", "desc", r.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var candidates []types.Candidate
	for _, repo := range repos {
		known, err := r.store.CandidateExists(ctx, repo.Owner, repo.Name)
		if err != nil {
			return nil, fmt.Errorf("checking store for %s/%s: %w", repo.Owner, repo.Name, err)
		}
		if known {
			continue
		}
		candidates = append(candidates, types.Candidate{
			ID:           uuid.NewString(),
			Owner:        repo.Owner,
			Name:         repo.Name,
			URL:          repo.URL,
			Stars:        repo.Stars,
			Forks:        repo.Forks,
			UpdatedAt:    repo.UpdatedAt,
			DiscoveredAt: now,
		})
	}
	return candidates, nil
}

// processCandidate runs one candidate's sub-pipeline: enrich, analyze,
// persist, match, persist matches, gate. Returns whether a notification
// went out.
func (r *Runner) processCandidate(ctx context.Context, cand *types.Candidate) (bool, error) {
	readme, manifest := r.analyzer.Enrich(ctx, cand.Owner, cand.Name)

	analysis := r.analyzer.Analyze(ctx, cand, readme, manifest)

	if err := r.store.CreateCandidate(ctx, cand); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// An overlapping run got here first; its writes win.
			slog.Debug("candidate already being processed", "candidate", cand.FullName())
			return false, nil
		}
		return false, fmt.Errorf("persisting candidate: %w", err)
	}

	analysis.ID = uuid.NewString()
	if err := r.store.CreateAnalysis(ctx, analysis); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Debug("analysis already recorded", "candidate", cand.FullName())
			return false, nil
		}
		return false, fmt.Errorf("persisting analysis: %w", err)
	}

	matches := r.matcher.FindMatches(ctx, cand, analysis)
	for i := range matches {
		if err := r.store.CreateMatch(ctx, &matches[i]); err != nil {
			return false, fmt.Errorf("persisting match: %w", err)
		}
	}

	if len(matches) == 0 || analysis.Score < r.cfg.ScoreThreshold {
		return false, nil
	}

	res := r.gate.Notify(ctx, cand, analysis, matches, r.cfg.Language)
	if !res.Sent {
		slog.Info("notification not sent",
			"candidate", cand.FullName(), "reason", res.Reason)
	}
	return res.Sent, nil
}
