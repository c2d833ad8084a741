package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vilaca/org-issue-sync/internal/domain"
	"github.com/vilaca/org-issue-sync/internal/logger"
	"github.com/vilaca/org-issue-sync/internal/org"
)

// Property keys written into issue headings.
const (
	// PropertyAgendaGroup groups issues by language in org-super-agenda
	PropertyAgendaGroup = "agenda-group"
	// PropertyIssueID holds the platform's stable issue identifier
	PropertyIssueID = "ISSUE_ID"
)

// languageGlyphs decorates well-known languages. Keys are lower case.
var languageGlyphs = map[string]string{
	"python":     "🐍",
	"perl":       "🐪",
	"emacs lisp": "𝛌",
	"java":       "☕",
}

// SnapshotWaiter is the part of the Fetcher the Transformer depends on.
type SnapshotWaiter interface {
	Wait(ctx context.Context) ([]domain.ProjectSnapshot, error)
}

// TransformerConfig holds the options of a Transformer.
type TransformerConfig struct {
	Todos    org.Todos
	Location *time.Location // Zone for CLOSED timestamps; nil means local
}

// ProjectHeadings is the transformed form of one project snapshot.
type ProjectHeadings struct {
	Project  string
	Headings []*org.Heading
}

// Transformer turns fetched issues into org headings.
type Transformer struct {
	fetcher  SnapshotWaiter
	todos    org.Todos
	location *time.Location
}

// NewTransformer creates a transformer reading from fetcher.
func NewTransformer(fetcher SnapshotWaiter, cfg TransformerConfig) *Transformer {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Transformer{
		fetcher:  fetcher,
		todos:    cfg.Todos,
		location: loc,
	}
}

// Transform builds the heading for a single issue. The heading is detached;
// the reconciler decides where, and whether, it goes into the document.
func (t *Transformer) Transform(issue domain.Issue, language string) *org.Heading {
	keyword := t.todos.TodoKeyword("todo")
	if issue.IsClosed() {
		keyword = t.todos.DoneKeyword("done")
	}

	h := org.NewHeading(1, keyword, RenderTitle(issue.Title, issue.URL))

	if issue.ClosedAt != nil {
		h.SetClosed(org.FormatInactive(issue.ClosedAt.In(t.location)))
	}
	if language != "" {
		h.SetProperty(PropertyAgendaGroup, prettyLanguage(language))
	}
	if issue.ID != "" {
		h.SetProperty(PropertyIssueID, issue.ID)
	}

	return h
}

// GetData waits for the fetcher and transforms every issue of every
// project, keeping fetch order.
func (t *Transformer) GetData(ctx context.Context) ([]ProjectHeadings, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sync.transformer"})

	snapshots, err := t.fetcher.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for fetch: %w", err)
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "transformer.GetData")
	defer span.End()

	data := make([]ProjectHeadings, 0, len(snapshots))
	total := 0
	for _, snapshot := range snapshots {
		language := snapshot.PrimaryLanguage()
		headings := make([]*org.Heading, 0, len(snapshot.Issues))
		for _, issue := range snapshot.Issues {
			headings = append(headings, t.Transform(issue, language))
		}
		total += len(headings)
		data = append(data, ProjectHeadings{
			Project:  snapshot.Project.Name,
			Headings: headings,
		})
	}

	span.SetAttributes(attribute.Int("projects", len(data)), attribute.Int("headings", total))
	slog.DebugContext(ctx, "transformed issues", "projects", len(data), "headings", total)
	return data, nil
}

// RenderTitle renders an org link to the issue's browser page.
func RenderTitle(title, url string) string {
	return fmt.Sprintf("[[%s][%s]]", BrowserURL(url), title)
}

// BrowserURL rewrites a GitHub API issue URL into its browser address.
// Other URLs are returned unchanged.
func BrowserURL(url string) string {
	return strings.ReplaceAll(url, "api.github.com/repos", "github.com")
}

func prettyLanguage(language string) string {
	if glyph, ok := languageGlyphs[strings.ToLower(language)]; ok {
		return glyph + " " + language
	}
	return language
}
