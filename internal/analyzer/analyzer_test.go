package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgscout/pkgscout/internal/forge"
	"github.com/pkgscout/pkgscout/internal/types"
)

// fakeExecutor returns canned completion output.
type fakeExecutor struct {
	text string
	err  error
}

func (f *fakeExecutor) Complete(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

// fakeForge serves canned artifacts.
type fakeForge struct {
	readme     string
	readmeErr  error
	manifest   string
	manifestErr error
}

func (f *fakeForge) SearchRepositories(ctx context.Context, query, sort, order string, perPage int) ([]forge.Repository, error) {
	return nil, nil
}

func (f *fakeForge) Readme(ctx context.Context, owner, repo string) (string, error) {
	return f.readme, f.readmeErr
}

func (f *fakeForge) FileContent(ctx context.Context, owner, repo, path string) (string, error) {
	return f.manifest, f.manifestErr
}

func (f *fakeForge) SearchIssues(ctx context.Context, query string, perPage int) ([]forge.Issue, error) {
	return nil, nil
}

func (f *fakeForge) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (*forge.IssueRef, error) {
	return nil, nil
}

func testCandidate() *types.Candidate {
	return &types.Candidate{
		ID:        "cand-1",
		Owner:     "x",
		Name:      "y",
		URL:       "https://example.com/x/y",
		Stars:     10,
		UpdatedAt: time.Now(),
	}
}

func TestAnalyzeParsesWellFormedResponse(t *testing.T) {
	exec := &fakeExecutor{text: `Here you go:
{
  "score": 8.5, "docs": 9, "tests": 7, "activity": 8, "code": 8,
  "maintained": true, "category": "data",
  "features": ["caching", "ttl eviction"],
  "recommendations": ["add benchmarks"]
}`}
	a := New(exec, &fakeForge{}, "")

	analysis := a.Analyze(context.Background(), testCandidate(), "readme", "")
	assert.Equal(t, 8.5, analysis.Score)
	assert.Equal(t, types.CategoryData, analysis.Category)
	assert.True(t, analysis.Maintained)
	assert.Equal(t, []string{"caching", "ttl eviction"}, analysis.Features)
	assert.False(t, analysis.UsedDefault)
}

func TestAnalyzeDefaultsOnUnparsableResponse(t *testing.T) {
	exec := &fakeExecutor{text: "I cannot assess this package, sorry."}
	a := New(exec, &fakeForge{}, "")

	analysis := a.Analyze(context.Background(), testCandidate(), "", "")
	require.NotNil(t, analysis)
	assert.True(t, analysis.UsedDefault)
	assert.Equal(t, 5.0, analysis.Score)
	assert.Equal(t, 5.0, analysis.Docs)
	assert.Equal(t, 5.0, analysis.Tests)
	assert.Equal(t, 5.0, analysis.Activity)
	assert.Equal(t, 5.0, analysis.Code)
	assert.False(t, analysis.Maintained)
	assert.Equal(t, types.CategoryUtility, analysis.Category)
	assert.Empty(t, analysis.Features)
	assert.Empty(t, analysis.Recommendations)
}

func TestAnalyzeDefaultsOnServiceFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("credential pool exhausted")}
	a := New(exec, &fakeForge{}, "")

	analysis := a.Analyze(context.Background(), testCandidate(), "", "")
	assert.True(t, analysis.UsedDefault)
	assert.Equal(t, 5.0, analysis.Score)
}

func TestAnalyzeAcceptsUnknownCategory(t *testing.T) {
	exec := &fakeExecutor{text: `{"score": 6, "docs": 6, "tests": 6, "activity": 6, "code": 6,
		"maintained": false, "category": "frobnication", "features": [], "recommendations": []}`}
	a := New(exec, &fakeForge{}, "")

	analysis := a.Analyze(context.Background(), testCandidate(), "", "")
	assert.Equal(t, types.Category("frobnication"), analysis.Category)
	assert.False(t, analysis.Category.IsKnown())
}

func TestAnalyzeClampsScores(t *testing.T) {
	exec := &fakeExecutor{text: `{"score": 14, "docs": -3, "tests": 5, "activity": 5, "code": 5,
		"maintained": true, "category": "tools", "features": [], "recommendations": []}`}
	a := New(exec, &fakeForge{}, "")

	analysis := a.Analyze(context.Background(), testCandidate(), "", "")
	assert.Equal(t, 10.0, analysis.Score)
	assert.Equal(t, 0.0, analysis.Docs)
}

func TestEnrichBestEffort(t *testing.T) {
	fc := &fakeForge{
		readme:      "# readme",
		manifestErr: forge.ErrNotFound,
	}
	a := New(&fakeExecutor{}, fc, "package.json")

	readme, manifest := a.Enrich(context.Background(), "x", "y")
	assert.Equal(t, "# readme", readme)
	assert.Empty(t, manifest)

	fc.readmeErr = errors.New("network down")
	readme, _ = a.Enrich(context.Background(), "x", "y")
	assert.Empty(t, readme)
}

func TestPromptBoundsArtifacts(t *testing.T) {
	a := New(&fakeExecutor{}, &fakeForge{}, "")

	longReadme := make([]byte, maxReadmeChars*3)
	for i := range longReadme {
		longReadme[i] = 'a'
	}

	prompt := a.buildPrompt(testCandidate(), string(longReadme), "")
	assert.Less(t, len(prompt), maxReadmeChars*2,
		"prompt must truncate oversized readmes")
	assert.Contains(t, prompt, "x/y")
}
