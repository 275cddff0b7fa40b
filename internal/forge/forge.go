// Package forge talks to the code-hosting platform's REST API:
// repository search, raw file retrieval, issue search, and issue
// creation. Callers depend on the Client interface so tests can
// substitute fakes.
package forge

import (
	"context"
	"time"
)

// Repository is one repository returned from search.
type Repository struct {
	Owner       string
	Name        string
	FullName    string
	URL         string
	Description string
	Stars       int
	Forks       int
	UpdatedAt   time.Time
}

// Issue is one open request returned from issue search.
type Issue struct {
	Owner  string
	Repo   string
	Number int
	Title  string
	Body   string
	URL    string
	State  string
}

// IssueRef identifies an issue created through the API.
type IssueRef struct {
	Number int
	URL    string
}

// Client is the hosting-platform surface the pipeline consumes.
type Client interface {
	// SearchRepositories runs one repository search. Failures are
	// returned; discovery treats them as fatal to the batch.
	SearchRepositories(ctx context.Context, query, sort, order string, perPage int) ([]Repository, error)

	// Readme fetches the repository readme as raw text.
	Readme(ctx context.Context, owner, repo string) (string, error)

	// FileContent fetches one file as raw text. Missing files return
	// ErrNotFound.
	FileContent(ctx context.Context, owner, repo, path string) (string, error)

	// SearchIssues runs one issue search across the platform.
	SearchIssues(ctx context.Context, query string, perPage int) ([]Issue, error)

	// CreateIssue files an issue on the given repository.
	CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (*IssueRef, error)
}
