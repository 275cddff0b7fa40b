// Package llm schedules completion-service calls across a pool of
// quota-limited credentials and provides tolerant parsing of model
// output.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// Model constants. Scoring and relevance judging are simple structured
// tasks, so the cost-efficient model is the default.
const (
	ModelDefault = "claude-3-5-haiku-20241022"
)

// DefaultModel returns the pool-wide default model, honoring the
// PKGSCOUT_MODEL environment override.
func DefaultModel() string {
	if model := os.Getenv("PKGSCOUT_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// ErrPoolExhausted is returned when every credential is rate-limited or
// over quota within the current window.
var ErrPoolExhausted = errors.New("credential pool exhausted")

// Executor issues one completion request and returns the raw model
// text. Pool implements it; tests substitute fakes.
type Executor interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type credentialStatus int

const (
	statusActive credentialStatus = iota
	statusRateLimited
)

// credential is one completion-service credential with its rolling
// usage window. Mutated only under the pool lock; never persisted.
type credential struct {
	label       string
	model       string
	client      anthropic.Client
	usage       int
	windowStart time.Time
	status      credentialStatus
}

// CredentialConfig configures one pool credential.
type CredentialConfig struct {
	Label  string
	APIKey string
	Model  string // Empty means DefaultModel()
}

// Config configures the pool.
type Config struct {
	Credentials   []CredentialConfig
	Quota         int           // Requests per credential per window (default 50)
	Window        time.Duration // Rolling window length (default 1m)
	MaxConcurrent int           // Concurrent in-flight completions (default 3, 0 = unlimited)
	MaxTokens     int           // Completion token cap (default 2048)
}

// Pool distributes completion calls across credentials round-robin.
// All scheduler state (cursor, usage counters, statuses) lives behind
// one mutex so overlapping pipeline runs share it safely.
type Pool struct {
	mu     sync.Mutex
	creds  []*credential
	cursor int

	quota     int
	window    time.Duration
	maxTokens int

	sem *semaphore.Weighted

	// completeFn issues the actual API call; swapped out in tests.
	completeFn func(ctx context.Context, c *credential, prompt string) (string, error)

	done      chan struct{}
	sweeperWG sync.WaitGroup
}

// NewPool creates a pool and starts the background usage sweeper.
// Callers must Close it.
func NewPool(cfg Config) (*Pool, error) {
	if len(cfg.Credentials) == 0 {
		return nil, fmt.Errorf("at least one credential is required")
	}

	quota := cfg.Quota
	if quota <= 0 {
		quota = 50
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	now := time.Now()
	creds := make([]*credential, 0, len(cfg.Credentials))
	for i, cc := range cfg.Credentials {
		if cc.APIKey == "" {
			return nil, fmt.Errorf("credential %d: api key is empty", i)
		}
		label := cc.Label
		if label == "" {
			label = fmt.Sprintf("cred-%d", i)
		}
		model := cc.Model
		if model == "" {
			model = DefaultModel()
		}
		creds = append(creds, &credential{
			label:       label,
			model:       model,
			client:      anthropic.NewClient(option.WithAPIKey(cc.APIKey)),
			windowStart: now,
			status:      statusActive,
		})
	}

	var sem *semaphore.Weighted
	if cfg.MaxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	} else if cfg.MaxConcurrent == 0 {
		sem = semaphore.NewWeighted(3)
	}

	p := &Pool{
		creds:     creds,
		quota:     quota,
		window:    window,
		maxTokens: maxTokens,
		sem:       sem,
		done:      make(chan struct{}),
	}
	p.completeFn = p.completeAnthropic

	p.sweeperWG.Add(1)
	go p.sweep()

	slog.Info("credential pool initialized",
		"credentials", len(creds), "quota", quota, "window", window)

	return p, nil
}

// Close stops the background sweeper.
func (p *Pool) Close() {
	close(p.done)
	p.sweeperWG.Wait()
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.creds)
}

// Complete acquires a credential and issues one completion call.
// On a quota-shaped error the credential is marked rate-limited and the
// call fails over to the next eligible credential, bounded by the pool
// size; when no credential remains eligible it returns
// ErrPoolExhausted. Non-quota errors are returned as-is.
func (p *Pool) Complete(ctx context.Context, prompt string) (string, error) {
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("acquiring completion slot: %w", err)
		}
		defer p.sem.Release(1)
	}

	// One attempt per credential at most; acquire raising
	// ErrPoolExhausted ends the loop early.
	for attempt := 0; attempt < len(p.creds); attempt++ {
		cred, err := p.acquire()
		if err != nil {
			return "", err
		}

		text, callErr := p.completeFn(ctx, cred, prompt)

		// Any response, success or business-logic error, consumes one
		// unit of the credential's window.
		p.recordUse(cred)

		if callErr == nil {
			return text, nil
		}

		if isQuotaError(callErr) {
			p.markRateLimited(cred)
			slog.Warn("credential rate limited, failing over",
				"credential", cred.label, "attempt", attempt+1, "error", callErr)
			continue
		}

		return "", callErr
	}

	return "", ErrPoolExhausted
}

// acquire selects the next usable credential round-robin. The cursor
// advances on every call regardless of outcome, and any credential
// whose window has elapsed is reset before eligibility is evaluated.
func (p *Pool) acquire() (*credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetElapsedLocked(time.Now())

	start := p.cursor
	p.cursor = (p.cursor + 1) % len(p.creds)

	for i := 0; i < len(p.creds); i++ {
		cred := p.creds[(start+i)%len(p.creds)]
		if cred.status == statusActive && cred.usage < p.quota {
			return cred, nil
		}
	}

	return nil, ErrPoolExhausted
}

// recordUse increments a credential's usage counter.
func (p *Pool) recordUse(c *credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c.usage++
}

// markRateLimited flags a credential after a quota-shaped API error so
// it sits out until the next window reset.
func (p *Pool) markRateLimited(c *credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c.status = statusRateLimited
}

// resetElapsedLocked zeroes any credential whose window has elapsed.
// Fast path only; the sweeper is the authoritative reset.
func (p *Pool) resetElapsedLocked(now time.Time) {
	for _, c := range p.creds {
		if now.Sub(c.windowStart) >= p.window {
			c.usage = 0
			c.windowStart = now
			c.status = statusActive
		}
	}
}

// sweep unconditionally restores every credential each window.
func (p *Pool) sweep() {
	defer p.sweeperWG.Done()

	ticker := time.NewTicker(p.window)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case now := <-ticker.C:
			p.mu.Lock()
			for _, c := range p.creds {
				c.usage = 0
				c.windowStart = now
				c.status = statusActive
			}
			p.mu.Unlock()
			slog.Debug("credential usage counters reset", "credentials", len(p.creds))
		}
	}
}

// completeAnthropic issues the real Messages API call.
func (p *Pool) completeAnthropic(ctx context.Context, c *credential, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// Usage returns a credential's current usage count by label, for
// monitoring and tests.
func (p *Pool) Usage(label string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.creds {
		if c.label == label {
			return c.usage
		}
	}
	return 0
}
