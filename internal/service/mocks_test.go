package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vilaca/org-issue-sync/internal/domain"
)

// mockSource is a test double for api.Source.
type mockSource struct {
	getProjectsFunc  func(ctx context.Context) ([]domain.Project, error)
	getIssuesFunc    func(ctx context.Context, projectID string) ([]domain.Issue, error)
	getLanguagesFunc func(ctx context.Context, projectID string) ([]domain.Language, error)
}

func (m *mockSource) GetProjects(ctx context.Context) ([]domain.Project, error) {
	if m.getProjectsFunc != nil {
		return m.getProjectsFunc(ctx)
	}
	return nil, nil
}

func (m *mockSource) GetIssues(ctx context.Context, projectID string) ([]domain.Issue, error) {
	if m.getIssuesFunc != nil {
		return m.getIssuesFunc(ctx, projectID)
	}
	return nil, nil
}

func (m *mockSource) GetLanguages(ctx context.Context, projectID string) ([]domain.Language, error) {
	if m.getLanguagesFunc != nil {
		return m.getLanguagesFunc(ctx, projectID)
	}
	return nil, nil
}

// staticSource serves a fixed set of projects, issues and languages.
type staticSource struct {
	projects  []domain.Project
	issues    map[string][]domain.Issue
	languages map[string][]domain.Language
}

func (s *staticSource) GetProjects(ctx context.Context) ([]domain.Project, error) {
	return s.projects, nil
}

func (s *staticSource) GetIssues(ctx context.Context, projectID string) ([]domain.Issue, error) {
	return s.issues[projectID], nil
}

func (s *staticSource) GetLanguages(ctx context.Context, projectID string) ([]domain.Language, error) {
	return s.languages[projectID], nil
}

// mockWaiter is a test double for SnapshotWaiter.
type mockWaiter struct {
	snapshots []domain.ProjectSnapshot
	err       error
}

func (m *mockWaiter) Wait(ctx context.Context) ([]domain.ProjectSnapshot, error) {
	return m.snapshots, m.err
}

// githubIssue builds an issue of org/<repo> as the GitHub client reports it.
func githubIssue(repo string, number int, title string, state domain.IssueState, closedAt *time.Time) domain.Issue {
	return domain.Issue{
		ID:         fmt.Sprintf("github:%s-%d", repo, number),
		Number:     number,
		Title:      title,
		URL:        fmt.Sprintf("https://api.github.com/repos/org/%s/issues/%d", repo, number),
		State:      state,
		ClosedAt:   closedAt,
		ProjectID:  "org/" + repo,
		Repository: repo,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
