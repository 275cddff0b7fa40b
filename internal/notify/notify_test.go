package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgscout/pkgscout/internal/forge"
	"github.com/pkgscout/pkgscout/internal/storage"
	"github.com/pkgscout/pkgscout/internal/types"
)

type fakeForge struct {
	created   []createdIssue
	createErr error
}

type createdIssue struct {
	owner, repo, title, body string
	labels                   []string
}

func (f *fakeForge) SearchRepositories(ctx context.Context, query, sort, order string, perPage int) ([]forge.Repository, error) {
	return nil, nil
}

func (f *fakeForge) Readme(ctx context.Context, owner, repo string) (string, error) {
	return "", nil
}

func (f *fakeForge) FileContent(ctx context.Context, owner, repo, path string) (string, error) {
	return "", nil
}

func (f *fakeForge) SearchIssues(ctx context.Context, query string, perPage int) ([]forge.Issue, error) {
	return nil, nil
}

func (f *fakeForge) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (*forge.IssueRef, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createdIssue{owner, repo, title, body, labels})
	return &forge.IssueRef{Number: 100 + len(f.created), URL: "https://example.com/issue"}, nil
}

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.New(&storage.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seededCandidate(t *testing.T, store storage.Storage) *types.Candidate {
	t.Helper()
	c := &types.Candidate{
		ID:    uuid.NewString(),
		Owner: "acme",
		Name:  "cachekit",
		URL:   "https://example.com/acme/cachekit",
	}
	require.NoError(t, store.CreateCandidate(context.Background(), c))
	return c
}

func testAnalysis(candidateID string) *types.Analysis {
	a := types.DefaultAnalysis(candidateID)
	a.Score = 8.2
	a.Category = types.CategoryData
	a.Features = []string{"caching", "ttl"}
	return a
}

func testMatches(candidateID string, n int) []types.Match {
	matches := make([]types.Match, n)
	for i := range matches {
		matches[i] = types.Match{
			ID:          uuid.NewString(),
			CandidateID: candidateID,
			IssueOwner:  "someorg",
			IssueRepo:   "app",
			IssueNumber: i + 1,
			Score:       0.8,
			Reason:      "feature overlap",
		}
	}
	return matches
}

func TestNotifySendsAndRecords(t *testing.T) {
	store := newTestStore(t)
	fc := &fakeForge{}
	gate := New(store, fc, time.Hour)
	ctx := context.Background()

	cand := seededCandidate(t, store)
	result := gate.Notify(ctx, cand, testAnalysis(cand.ID), testMatches(cand.ID, 2), "en")

	require.True(t, result.Sent)
	require.NotNil(t, result.Ref)
	require.Len(t, fc.created, 1)
	assert.Equal(t, "acme", fc.created[0].owner)
	assert.Equal(t, "cachekit", fc.created[0].repo)
	assert.Contains(t, fc.created[0].body, "acme/cachekit")
	assert.Contains(t, fc.created[0].body, "8.2")
	assert.Contains(t, fc.created[0].body, "someorg/app#1")

	last, err := store.LastNotification(ctx, "acme", "cachekit")
	require.NoError(t, err)
	assert.Equal(t, result.Ref.Number, last.IssueNumber)
}

func TestNotifyCooldownBlocksSecondSend(t *testing.T) {
	store := newTestStore(t)
	fc := &fakeForge{}
	gate := New(store, fc, time.Hour)
	ctx := context.Background()

	cand := seededCandidate(t, store)
	analysis := testAnalysis(cand.ID)
	matches := testMatches(cand.ID, 1)

	first := gate.Notify(ctx, cand, analysis, matches, "en")
	require.True(t, first.Sent)

	// Second attempt inside the window, no matter what triggered it.
	second := gate.Notify(ctx, cand, analysis, matches, "en")
	assert.False(t, second.Sent)
	assert.Equal(t, ReasonCooldown, second.Reason)
	assert.Len(t, fc.created, 1, "no second issue may be filed")
}

func TestNotifyAfterCooldownExpires(t *testing.T) {
	store := newTestStore(t)
	fc := &fakeForge{}
	gate := New(store, fc, time.Hour)
	ctx := context.Background()

	cand := seededCandidate(t, store)

	// A stale record outside the window does not block.
	require.NoError(t, store.CreateNotification(ctx, &types.Notification{
		ID:     uuid.NewString(),
		Owner:  cand.Owner,
		Name:   cand.Name,
		SentAt: time.Now().Add(-2 * time.Hour),
	}))

	result := gate.Notify(ctx, cand, testAnalysis(cand.ID), testMatches(cand.ID, 1), "en")
	assert.True(t, result.Sent)
}

func TestNotifySendFailureIsStructured(t *testing.T) {
	store := newTestStore(t)
	fc := &fakeForge{createErr: errors.New("API request failed: 403 Forbidden")}
	gate := New(store, fc, time.Hour)
	ctx := context.Background()

	cand := seededCandidate(t, store)
	result := gate.Notify(ctx, cand, testAnalysis(cand.ID), testMatches(cand.ID, 1), "en")

	assert.False(t, result.Sent)
	assert.Contains(t, result.Reason, "creating issue")

	// Failed sends leave no record, so a later attempt is not blocked.
	hit, err := store.NotifiedSince(ctx, cand.Owner, cand.Name, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestComposeMessageTruncatesMatches(t *testing.T) {
	cand := &types.Candidate{ID: "c", Owner: "acme", Name: "cachekit"}
	_, body, err := composeMessage(cand, testAnalysis("c"), testMatches("c", 8), "en")
	require.NoError(t, err)

	assert.Contains(t, body, "someorg/app#5")
	assert.NotContains(t, body, "someorg/app#6")
	assert.Contains(t, body, "3 more")
}

func TestComposeMessageLocales(t *testing.T) {
	cand := &types.Candidate{ID: "c", Owner: "acme", Name: "cachekit"}
	analysis := testAnalysis("c")
	matches := testMatches("c", 1)

	title, _, err := composeMessage(cand, analysis, matches, "es")
	require.NoError(t, err)
	assert.Equal(t, "Tu paquete coincide con solicitudes abiertas", title)

	title, _, err = composeMessage(cand, analysis, matches, "pt-BR")
	require.NoError(t, err)
	assert.Equal(t, "Seu pacote corresponde a solicitações abertas", title)

	// Unsupported and empty languages fall back to English.
	for _, lang := range []string{"zz", "", "de"} {
		title, _, err = composeMessage(cand, analysis, matches, lang)
		require.NoError(t, err)
		assert.Equal(t, "Your package matches open requests", title, "lang=%s", lang)
	}
}
