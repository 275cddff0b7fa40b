// Package analyzer scores candidates with the completion service and
// fetches the auxiliary artifacts the scoring prompt embeds.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkgscout/pkgscout/internal/forge"
	"github.com/pkgscout/pkgscout/internal/llm"
	"github.com/pkgscout/pkgscout/internal/types"
)

// Prompt embeds are bounded to cap token cost; readmes routinely run
// to tens of kilobytes.
const (
	maxReadmeChars   = 4000
	maxManifestChars = 2000
)

// Analyzer produces quality assessments for candidates.
type Analyzer struct {
	exec         llm.Executor
	forge        forge.Client
	manifestPath string
}

// New creates an analyzer. manifestPath is the repository-relative file
// fetched as the manifest artifact (e.g. "package.json").
func New(exec llm.Executor, fc forge.Client, manifestPath string) *Analyzer {
	if manifestPath == "" {
		manifestPath = "package.json"
	}
	return &Analyzer{exec: exec, forge: fc, manifestPath: manifestPath}
}

// Enrich fetches the readme and manifest for a candidate. Both are
// best-effort: any failure yields an empty string. Enrichment is an
// optional quality input; discovery defines the unit of work.
func (a *Analyzer) Enrich(ctx context.Context, owner, name string) (readme, manifest string) {
	var err error

	readme, err = a.forge.Readme(ctx, owner, name)
	if err != nil {
		if !errors.Is(err, forge.ErrNotFound) {
			slog.Debug("readme fetch failed", "repo", owner+"/"+name, "error", err)
		}
		readme = ""
	}

	manifest, err = a.forge.FileContent(ctx, owner, name, a.manifestPath)
	if err != nil {
		if !errors.Is(err, forge.ErrNotFound) {
			slog.Debug("manifest fetch failed", "repo", owner+"/"+name, "error", err)
		}
		manifest = ""
	}

	return readme, manifest
}

// analysisPayload is the fixed shape the scoring prompt asks for.
type analysisPayload struct {
	Score           float64  `json:"score"`
	Docs            float64  `json:"docs"`
	Tests           float64  `json:"tests"`
	Activity        float64  `json:"activity"`
	Code            float64  `json:"code"`
	Maintained      bool     `json:"maintained"`
	Category        string   `json:"category"`
	Features        []string `json:"features"`
	Recommendations []string `json:"recommendations"`
}

// Analyze scores one candidate. It never returns an error: a failed
// completion call or an unparsable response yields the neutral default
// (marked UsedDefault) so the pipeline cannot stall on a bad response.
func (a *Analyzer) Analyze(ctx context.Context, cand *types.Candidate, readme, manifest string) *types.Analysis {
	prompt := a.buildPrompt(cand, readme, manifest)

	text, err := a.exec.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("scoring call failed, using default analysis",
			"candidate", cand.FullName(), "error", err)
		return types.DefaultAnalysis(cand.ID)
	}

	result := llm.Extract[analysisPayload](text)
	if !result.OK {
		slog.Warn("scoring response unparsable, using default analysis",
			"candidate", cand.FullName(), "parse_error", result.Err)
		return types.DefaultAnalysis(cand.ID)
	}

	return normalize(cand.ID, result.Data)
}

// buildPrompt renders the deterministic scoring prompt: candidate
// metadata plus bounded artifact prefixes.
func (a *Analyzer) buildPrompt(cand *types.Candidate, readme, manifest string) string {
	var b strings.Builder

	b.WriteString("You are evaluating an open-source package for quality and purpose.\n\n")
	fmt.Fprintf(&b, "Repository: %s\n", cand.FullName())
	fmt.Fprintf(&b, "URL: %s\n", cand.URL)
	fmt.Fprintf(&b, "Stars: %d  Forks: %d\n", cand.Stars, cand.Forks)
	fmt.Fprintf(&b, "Last updated: %s\n\n", cand.UpdatedAt.Format("2006-01-02"))

	if readme != "" {
		b.WriteString("README (truncated):\n")
		b.WriteString(prefix(readme, maxReadmeChars))
		b.WriteString("\n\n")
	}
	if manifest != "" {
		b.WriteString("Manifest (truncated):\n")
		b.WriteString(prefix(manifest, maxManifestChars))
		b.WriteString("\n\n")
	}

	b.WriteString(`Respond with ONLY a JSON object in exactly this shape:
{
  "score": <overall quality 0-10>,
  "docs": <documentation quality 0-10>,
  "tests": <test coverage impression 0-10>,
  "activity": <maintenance activity 0-10>,
  "code": <code quality impression 0-10>,
  "maintained": <true|false>,
  "category": "<one of: compute, data, api, tools, utility>",
  "features": ["<short feature phrases a user would search for>"],
  "recommendations": ["<improvement suggestions>"]
}`)

	return b.String()
}

// normalize clamps scores into range and fills gaps. Unknown category
// strings pass through unchanged; only an empty category is coerced.
func normalize(candidateID string, p analysisPayload) *types.Analysis {
	a := &types.Analysis{
		CandidateID:     candidateID,
		Score:           clamp(p.Score),
		Docs:            clamp(p.Docs),
		Tests:           clamp(p.Tests),
		Activity:        clamp(p.Activity),
		Code:            clamp(p.Code),
		Maintained:      p.Maintained,
		Category:        types.Category(p.Category),
		Features:        p.Features,
		Recommendations: p.Recommendations,
	}
	if a.Category == "" {
		a.Category = types.CategoryUtility
	}
	if a.Features == nil {
		a.Features = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return a
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
