package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vilaca/org-issue-sync/internal/api"
	"github.com/vilaca/org-issue-sync/internal/domain"
	"github.com/vilaca/org-issue-sync/internal/logger"
)

const tracerName = "github.com/vilaca/org-issue-sync/internal/service"

var (
	// ErrAlreadyFetched is returned by a second Fetch in the same run.
	ErrAlreadyFetched = errors.New("fetch already performed for this run")
	// ErrDeadlineExceeded is returned by Wait when the context ends first.
	ErrDeadlineExceeded = errors.New("gave up waiting for fetched data")
)

// FetcherConfig holds the options of a Fetcher.
type FetcherConfig struct {
	// Project IDs or names to keep; empty keeps everything
	WatchedRepos        []string
	IncludePullRequests bool
	// How often Wait reports that it is still waiting
	PollInterval time.Duration
}

// Fetcher pulls a full snapshot of projects and issues from a Source.
// A Fetcher serves exactly one run.
type Fetcher struct {
	source  api.Source
	cfg     FetcherConfig
	watched map[string]bool

	started  atomic.Bool
	ready    chan struct{}
	snapshot []domain.ProjectSnapshot
	err      error
}

// NewFetcher creates a fetcher for the given source.
func NewFetcher(source api.Source, cfg FetcherConfig) *Fetcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	var watched map[string]bool
	if len(cfg.WatchedRepos) > 0 {
		watched = make(map[string]bool, len(cfg.WatchedRepos))
		for _, repo := range cfg.WatchedRepos {
			watched[repo] = true
		}
	}

	return &Fetcher{
		source:  source,
		cfg:     cfg,
		watched: watched,
		ready:   make(chan struct{}),
	}
}

// Fetch performs the remote calls and stores the snapshot.
// Any source error fails the whole fetch; no partial snapshot is kept.
func (f *Fetcher) Fetch(ctx context.Context) error {
	if !f.started.CompareAndSwap(false, true) {
		return ErrAlreadyFetched
	}
	defer close(f.ready)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sync.fetcher"})
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fetcher.Fetch")
	defer span.End()

	snapshot, err := f.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		f.err = err
		return err
	}

	span.SetAttributes(attribute.Int("projects", len(snapshot)))
	f.snapshot = snapshot
	return nil
}

// Ready is closed once Fetch has finished, successfully or not.
func (f *Fetcher) Ready() <-chan struct{} {
	return f.ready
}

// Wait blocks until the fetch has finished or ctx is done.
func (f *Fetcher) Wait(ctx context.Context) ([]domain.ProjectSnapshot, error) {
	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-f.ready:
			return f.snapshot, f.err
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrDeadlineExceeded, ctx.Err())
		case <-ticker.C:
			slog.InfoContext(ctx, "still waiting for fetched data",
				"waited", time.Since(start).Round(time.Second))
		}
	}
}

func (f *Fetcher) fetch(ctx context.Context) ([]domain.ProjectSnapshot, error) {
	projects, err := f.source.GetProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	snapshot := make([]domain.ProjectSnapshot, 0, len(projects))
	anyIssues := false
	for _, project := range projects {
		if !f.isWatched(project) {
			continue
		}

		issues, err := f.source.GetIssues(ctx, project.ID)
		if err != nil {
			return nil, fmt.Errorf("listing issues of %s: %w", project.ID, err)
		}
		if !f.cfg.IncludePullRequests {
			issues = withoutPullRequests(issues)
		}

		languages, err := f.source.GetLanguages(ctx, project.ID)
		if err != nil {
			return nil, fmt.Errorf("listing languages of %s: %w", project.ID, err)
		}

		slog.DebugContext(ctx, "fetched project",
			"project_id", project.ID, "issues", len(issues), "languages", len(languages))

		anyIssues = anyIssues || len(issues) > 0
		snapshot = append(snapshot, domain.ProjectSnapshot{
			Project:   project,
			Issues:    issues,
			Languages: languages,
		})
	}

	// No issues anywhere is a valid, empty fetch
	if !anyIssues {
		slog.InfoContext(ctx, "no issues found", "projects", len(snapshot))
		return []domain.ProjectSnapshot{}, nil
	}

	slog.InfoContext(ctx, "fetch complete", "projects", len(snapshot))
	return snapshot, nil
}

func (f *Fetcher) isWatched(project domain.Project) bool {
	if f.watched == nil {
		return true
	}
	return f.watched[project.ID] || f.watched[project.Name]
}

func withoutPullRequests(issues []domain.Issue) []domain.Issue {
	kept := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if !issue.IsPullRequest {
			kept = append(kept, issue)
		}
	}
	return kept
}
