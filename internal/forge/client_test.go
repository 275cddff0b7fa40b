package forge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(ClientConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		RPS:     1000,
	})
}

func TestSearchRepositories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		assert.Equal(t, "topic:go topic:library", r.URL.Query().Get("q"))
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"name":             "cachekit",
					"owner":            map[string]any{"login": "acme"},
					"full_name":        "acme/cachekit",
					"html_url":         "https://example.com/acme/cachekit",
					"stargazers_count": 42,
					"forks_count":      7,
					"updated_at":       "2026-08-30T12:00:00Z",
				},
			},
		})
	})

	repos, err := client.SearchRepositories(context.Background(), "topic:go topic:library", "updated", "desc", 5)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "acme", repos[0].Owner)
	assert.Equal(t, "cachekit", repos[0].Name)
	assert.Equal(t, 42, repos[0].Stars)
}

func TestSearchRepositoriesError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "validation failed", http.StatusUnprocessableEntity)
	})

	_, err := client.SearchRepositories(context.Background(), "q", "updated", "desc", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestReadmeRaw(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/cachekit/readme", r.URL.Path)
		assert.Equal(t, acceptRaw, r.Header.Get("Accept"))
		_, _ = w.Write([]byte("# cachekit\nA tiny cache."))
	})

	text, err := client.Readme(context.Background(), "acme", "cachekit")
	require.NoError(t, err)
	assert.Contains(t, text, "tiny cache")
}

func TestFileContentNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.FileContent(context.Background(), "acme", "cachekit", "package.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchIssuesParsesRepositoryURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/issues", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"number":         17,
					"title":          "Need a caching library",
					"body":           "Looking for an LRU cache",
					"html_url":       "https://example.com/someorg/app/issues/17",
					"state":          "open",
					"repository_url": "https://api.github.com/repos/someorg/app",
				},
			},
		})
	})

	issues, err := client.SearchIssues(context.Background(), "cache in:title", 20)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "someorg", issues[0].Owner)
	assert.Equal(t, "app", issues[0].Repo)
	assert.Equal(t, 17, issues[0].Number)
}

func TestCreateIssue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/cachekit/issues", r.URL.Path)

		var body struct {
			Title  string   `json:"title"`
			Body   string   `json:"body"`
			Labels []string `json:"labels"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Your package matches open requests", body.Title)
		assert.Equal(t, []string{"pkgscout"}, body.Labels)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"number":   101,
			"html_url": "https://example.com/acme/cachekit/issues/101",
		})
	})

	ref, err := client.CreateIssue(context.Background(), "acme", "cachekit",
		"Your package matches open requests", "details", []string{"pkgscout"})
	require.NoError(t, err)
	assert.Equal(t, 101, ref.Number)
	assert.Contains(t, ref.URL, "/issues/101")
}

func TestSplitRepositoryURL(t *testing.T) {
	owner, repo := splitRepositoryURL("https://api.github.com/repos/foo/bar")
	assert.Equal(t, "foo", owner)
	assert.Equal(t, "bar", repo)

	owner, repo = splitRepositoryURL("https://example.com/nothing")
	assert.Empty(t, owner)
	assert.Empty(t, repo)
}
