package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned for 404 responses on file fetches.
var ErrNotFound = errors.New("not found")

const (
	defaultBaseURL = "https://api.github.com"
	acceptJSON     = "application/vnd.github+json"
	acceptRaw      = "application/vnd.github.raw+json"
)

// HTTPClient is the production Client backed by the platform's REST
// API, with a client-side rate limiter ahead of every call.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	BaseURL string  // Default https://api.github.com
	Token   string  // Optional bearer token
	RPS     float64 // Client-side requests per second (default 5)
	Timeout time.Duration
}

// NewHTTPClient creates a ready-to-use API client.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL: baseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

var _ Client = (*HTTPClient)(nil)

// searchRepoItem mirrors the fields consumed from the repository
// search response.
type searchRepoItem struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	FullName    string    `json:"full_name"`
	HTMLURL     string    `json:"html_url"`
	Description string    `json:"description"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchRepositories implements Client.
func (c *HTTPClient) SearchRepositories(ctx context.Context, query, sort, order string, perPage int) ([]Repository, error) {
	q := url.Values{}
	q.Set("q", query)
	if sort != "" {
		q.Set("sort", sort)
	}
	if order != "" {
		q.Set("order", order)
	}
	q.Set("per_page", strconv.Itoa(perPage))

	var payload struct {
		Items []searchRepoItem `json:"items"`
	}
	if err := c.getJSON(ctx, "/search/repositories?"+q.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("searching repositories: %w", err)
	}

	repos := make([]Repository, 0, len(payload.Items))
	for _, item := range payload.Items {
		repos = append(repos, Repository{
			Owner:       item.Owner.Login,
			Name:        item.Name,
			FullName:    item.FullName,
			URL:         item.HTMLURL,
			Description: item.Description,
			Stars:       item.Stars,
			Forks:       item.Forks,
			UpdatedAt:   item.UpdatedAt,
		})
	}
	return repos, nil
}

// Readme implements Client.
func (c *HTTPClient) Readme(ctx context.Context, owner, repo string) (string, error) {
	return c.getRaw(ctx, fmt.Sprintf("/repos/%s/%s/readme", owner, repo))
}

// FileContent implements Client.
func (c *HTTPClient) FileContent(ctx context.Context, owner, repo, path string) (string, error) {
	return c.getRaw(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path))
}

// searchIssueItem mirrors the fields consumed from the issue search
// response. The owning repository is only present as an API URL.
type searchIssueItem struct {
	Number        int    `json:"number"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	HTMLURL       string `json:"html_url"`
	State         string `json:"state"`
	RepositoryURL string `json:"repository_url"`
}

// SearchIssues implements Client.
func (c *HTTPClient) SearchIssues(ctx context.Context, query string, perPage int) ([]Issue, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("per_page", strconv.Itoa(perPage))

	var payload struct {
		Items []searchIssueItem `json:"items"`
	}
	if err := c.getJSON(ctx, "/search/issues?"+q.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}

	issues := make([]Issue, 0, len(payload.Items))
	for _, item := range payload.Items {
		owner, repo := splitRepositoryURL(item.RepositoryURL)
		issues = append(issues, Issue{
			Owner:  owner,
			Repo:   repo,
			Number: item.Number,
			Title:  item.Title,
			Body:   item.Body,
			URL:    item.HTMLURL,
			State:  item.State,
		})
	}
	return issues, nil
}

// CreateIssue implements Client.
func (c *HTTPClient) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (*IssueRef, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(map[string]any{
		"title":  title,
		"body":   body,
		"labels": labels,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding issue: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+fmt.Sprintf("/repos/%s/%s/issues", owner, repo), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, acceptJSON)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var ref struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return nil, fmt.Errorf("decoding issue response: %w", err)
	}

	slog.Info("issue created", "repo", owner+"/"+repo, "number", ref.Number)
	return &IssueRef{Number: ref.Number, URL: ref.HTMLURL}, nil
}

// getJSON performs a rate-limited GET and decodes the JSON response.
func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, acceptJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// getRaw performs a rate-limited GET with the raw media type and
// returns the body as text.
func (c *HTTPClient) getRaw(ctx context.Context, path string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req, acceptRaw)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *HTTPClient) setHeaders(req *http.Request, accept string) {
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// apiError surfaces the status line and a body snippet for non-2xx
// responses.
func apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("API request failed: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
}

// splitRepositoryURL parses ".../repos/{owner}/{repo}" into its parts.
func splitRepositoryURL(u string) (owner, repo string) {
	const marker = "/repos/"
	idx := strings.Index(u, marker)
	if idx < 0 {
		return "", ""
	}
	parts := strings.Split(u[idx+len(marker):], "/")
	if len(parts) < 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
