// Package notify enforces the per-target cooldown and files the
// outbound notification as an issue on the candidate's repository.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/pkgscout/pkgscout/internal/forge"
	"github.com/pkgscout/pkgscout/internal/storage"
	"github.com/pkgscout/pkgscout/internal/types"
)

// DefaultCooldown is the minimum time between two notifications to the
// same target.
const DefaultCooldown = time.Hour

// maxShownMatches caps how many matches the message lists; the rest are
// summarized as a count.
const maxShownMatches = 5

// ReasonCooldown is the structured reason for a send blocked by the
// cooldown window.
const ReasonCooldown = "cooldown"

// Result is the structured outcome of a notification attempt. Failures
// are reported here, never raised: a bad send must not abort the batch.
type Result struct {
	Sent   bool
	Reason string // Set when Sent is false
	Ref    *forge.IssueRef
}

// Gate composes and sends maintainer notifications.
type Gate struct {
	store    storage.Storage
	forge    forge.Client
	cooldown time.Duration
}

// New creates a gate. A non-positive cooldown falls back to
// DefaultCooldown.
func New(store storage.Storage, fc forge.Client, cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{store: store, forge: fc, cooldown: cooldown}
}

// Notify checks the cooldown, composes a localized message, files the
// issue, and appends the notification record. All failures come back in
// the Result.
func (g *Gate) Notify(ctx context.Context, cand *types.Candidate, analysis *types.Analysis, matches []types.Match, lang string) Result {
	hit, err := g.store.NotifiedSince(ctx, cand.Owner, cand.Name, time.Now().Add(-g.cooldown))
	if err != nil {
		return Result{Reason: fmt.Sprintf("cooldown check failed: %v", err)}
	}
	if hit {
		slog.Debug("notification blocked by cooldown", "target", cand.FullName())
		return Result{Reason: ReasonCooldown}
	}

	title, body, err := composeMessage(cand, analysis, matches, lang)
	if err != nil {
		return Result{Reason: fmt.Sprintf("composing message: %v", err)}
	}

	ref, err := g.forge.CreateIssue(ctx, cand.Owner, cand.Name, title, body, []string{"pkgscout"})
	if err != nil {
		return Result{Reason: fmt.Sprintf("creating issue: %v", err)}
	}

	record := &types.Notification{
		ID:          uuid.NewString(),
		Owner:       cand.Owner,
		Name:        cand.Name,
		CandidateID: cand.ID,
		IssueNumber: ref.Number,
		IssueURL:    ref.URL,
		SentAt:      time.Now().UTC(),
	}
	if err := g.store.CreateNotification(ctx, record); err != nil {
		// The issue is already filed; losing the log row only weakens
		// the cooldown, so report the send as done.
		slog.Error("notification sent but not recorded",
			"target", cand.FullName(), "error", err)
	}

	slog.Info("maintainer notified",
		"target", cand.FullName(), "issue", ref.Number, "matches", len(matches))
	return Result{Sent: true, Ref: ref}
}

// messageData feeds the notification templates.
type messageData struct {
	FullName  string
	Score     float64
	Category  string
	Features  string
	Matches   []types.Match
	Remainder int
}

// composeMessage renders the localized title and body. Unsupported
// languages fall back to English.
func composeMessage(cand *types.Candidate, analysis *types.Analysis, matches []types.Match, lang string) (title, body string, err error) {
	loc := pickLocale(lang)

	shown := matches
	remainder := 0
	if len(shown) > maxShownMatches {
		remainder = len(shown) - maxShownMatches
		shown = shown[:maxShownMatches]
	}

	data := messageData{
		FullName:  cand.FullName(),
		Score:     analysis.Score,
		Category:  string(analysis.Category),
		Features:  strings.Join(analysis.Features, ", "),
		Matches:   shown,
		Remainder: remainder,
	}

	var b strings.Builder
	if err := loc.body.Execute(&b, data); err != nil {
		return "", "", fmt.Errorf("rendering notification body: %w", err)
	}
	return loc.title, b.String(), nil
}

// locale couples a title with its body template.
type locale struct {
	title string
	body  *template.Template
}

var supportedTags = []language.Tag{
	language.English, // Default, must stay first
	language.Spanish,
	language.Portuguese,
}

var langMatcher = language.NewMatcher(supportedTags)

var locales = map[language.Tag]locale{
	language.English: {
		title: "Your package matches open requests",
		body: template.Must(template.New("en").Parse(`Hi! Automated scouting found that **{{.FullName}}** (quality score {{printf "%.1f" .Score}}/10, category {{.Category}}) may answer open requests from other users.

Detected features: {{.Features}}

Matching requests:
{{range .Matches}}- {{.IssueOwner}}/{{.IssueRepo}}#{{.IssueNumber}} (relevance {{printf "%.2f" .Score}}): {{.Reason}}
{{end}}{{if gt .Remainder 0}}...and {{.Remainder}} more.
{{end}}
Consider reaching out to these users — your package might be exactly what they are looking for.`)),
	},
	language.Spanish: {
		title: "Tu paquete coincide con solicitudes abiertas",
		body: template.Must(template.New("es").Parse(`¡Hola! Un rastreo automático detectó que **{{.FullName}}** (puntuación de calidad {{printf "%.1f" .Score}}/10, categoría {{.Category}}) podría responder a solicitudes abiertas de otros usuarios.

Funcionalidades detectadas: {{.Features}}

Solicitudes coincidentes:
{{range .Matches}}- {{.IssueOwner}}/{{.IssueRepo}}#{{.IssueNumber}} (relevancia {{printf "%.2f" .Score}}): {{.Reason}}
{{end}}{{if gt .Remainder 0}}...y {{.Remainder}} más.
{{end}}
Considera contactar a estos usuarios: tu paquete podría ser justo lo que buscan.`)),
	},
	language.Portuguese: {
		title: "Seu pacote corresponde a solicitações abertas",
		body: template.Must(template.New("pt").Parse(`Olá! Uma varredura automática detectou que **{{.FullName}}** (pontuação de qualidade {{printf "%.1f" .Score}}/10, categoria {{.Category}}) pode atender a solicitações abertas de outros usuários.

Funcionalidades detectadas: {{.Features}}

Solicitações correspondentes:
{{range .Matches}}- {{.IssueOwner}}/{{.IssueRepo}}#{{.IssueNumber}} (relevância {{printf "%.2f" .Score}}): {{.Reason}}
{{end}}{{if gt .Remainder 0}}...e mais {{.Remainder}}.
{{end}}
Considere entrar em contato com esses usuários — seu pacote pode ser exatamente o que procuram.`)),
	},
}

// pickLocale negotiates the closest supported locale for a language
// string, defaulting to English.
func pickLocale(lang string) locale {
	if lang == "" {
		return locales[language.English]
	}
	desired, _, _ := language.ParseAcceptLanguage(lang)
	_, index, conf := langMatcher.Match(desired...)
	if conf == language.No {
		return locales[language.English]
	}
	return locales[supportedTags[index]]
}
