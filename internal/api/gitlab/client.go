package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/vilaca/org-issue-sync/internal/api"
	"github.com/vilaca/org-issue-sync/internal/domain"
)

// Client implements api.Source for GitLab.
// Only handles GitLab API communication.
type Client struct {
	client *gitlab.Client
}

// NewClient creates a new GitLab client.
// config.BaseURL is the instance URL (e.g., "https://gitlab.com"); the
// "/api/v4" suffix is added here.
func NewClient(config api.ClientConfig, httpClient api.HTTPClient) (*Client, error) {
	opts := []gitlab.ClientOptionFunc{}
	if config.BaseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(strings.TrimSuffix(config.BaseURL, "/")+"/api/v4"))
	}
	if hc, ok := httpClient.(*http.Client); ok && hc != nil {
		opts = append(opts, gitlab.WithHTTPClient(hc))
	}

	client, err := gitlab.NewClient(config.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	return &Client{client: client}, nil
}

// GetProjects retrieves all projects the token is a member of.
func (c *Client) GetProjects(ctx context.Context) ([]domain.Project, error) {
	opts := &gitlab.ListProjectsOptions{
		Membership: gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: api.DefaultPageSize,
		},
	}

	var projects []domain.Project
	for {
		page, resp, err := c.client.Projects.ListProjects(opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to get projects: %w", err)
		}

		for _, p := range page {
			if p == nil {
				continue
			}
			projects = append(projects, domain.Project{
				ID:       fmt.Sprintf("%d", p.ID),
				Name:     p.Name,
				WebURL:   p.WebURL,
				Platform: domain.PlatformGitLab,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return projects, nil
}

// GetIssues retrieves all issues of a project, open and closed.
func (c *Client) GetIssues(ctx context.Context, projectID string) ([]domain.Issue, error) {
	opts := &gitlab.ListProjectIssuesOptions{
		State: gitlab.Ptr("all"),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: api.DefaultPageSize,
		},
	}

	var issues []domain.Issue
	for {
		page, resp, err := c.client.Issues.ListProjectIssues(projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to get issues: %w", err)
		}

		for _, gi := range page {
			if gi == nil {
				continue
			}
			issues = append(issues, convertIssue(gi, projectID))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return issues, nil
}

// GetLanguages retrieves the language breakdown (percent per language) of a project.
func (c *Client) GetLanguages(ctx context.Context, projectID string) ([]domain.Language, error) {
	langs, _, err := c.client.Projects.GetProjectLanguages(projectID, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get languages: %w", err)
	}

	shares := make(map[string]float64)
	if langs != nil {
		for name, percent := range *langs {
			shares[name] = float64(percent)
		}
	}

	return api.RankLanguages(shares), nil
}

// convertIssue converts a GitLab issue to domain model.
// GitLab reports browser-facing URLs, so URL and WebURL are the same.
func convertIssue(gi *gitlab.Issue, projectID string) domain.Issue {
	return domain.Issue{
		ID:         fmt.Sprintf("%s:%d", domain.PlatformGitLab, gi.ID),
		Number:     int(gi.IID),
		Title:      gi.Title,
		URL:        gi.WebURL,
		WebURL:     gi.WebURL,
		State:      convertState(gi.State),
		ClosedAt:   gi.ClosedAt,
		ProjectID:  projectID,
		Repository: repositoryFromWebURL(gi.WebURL),
	}
}

// convertState converts GitLab issue state to domain state.
func convertState(glState string) domain.IssueState {
	if glState == "closed" {
		return domain.IssueStateClosed
	}
	return domain.IssueStateOpen
}

// repositoryFromWebURL extracts the project path segment preceding "/-/issues/".
func repositoryFromWebURL(webURL string) string {
	idx := strings.Index(webURL, "/-/")
	if idx < 0 {
		return ""
	}
	path := webURL[:idx]
	return path[strings.LastIndex(path, "/")+1:]
}
