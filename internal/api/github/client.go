package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vilaca/org-issue-sync/internal/api"
	"github.com/vilaca/org-issue-sync/internal/domain"
)

// Client implements api.Source for GitHub.
// Only handles GitHub REST API communication.
type Client struct {
	baseURL    string
	token      string
	httpClient api.HTTPClient
}

// NewClient creates a new GitHub client.
// Uses dependency injection for HTTPClient.
func NewClient(config api.ClientConfig, httpClient api.HTTPClient) *Client {
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}

	return &Client{
		baseURL:    baseURL,
		token:      config.Token,
		httpClient: httpClient,
	}
}

// GetProjects retrieves every repository the token can see, following pagination.
func (c *Client) GetProjects(ctx context.Context) ([]domain.Project, error) {
	url := fmt.Sprintf("%s/user/repos?per_page=%d", c.baseURL, api.DefaultPageSize)

	var projects []domain.Project
	for url != "" {
		var ghRepos []githubRepository
		next, err := c.doRequest(ctx, url, &ghRepos)
		if err != nil {
			return nil, fmt.Errorf("failed to get repositories: %w", err)
		}
		projects = append(projects, c.convertProjects(ghRepos)...)
		url = next
	}

	return projects, nil
}

// GetIssues retrieves all issues of a repository, open and closed.
// projectID format: "owner/repo"
func (c *Client) GetIssues(ctx context.Context, projectID string) ([]domain.Issue, error) {
	url := fmt.Sprintf("%s/repos/%s/issues?state=all&per_page=%d", c.baseURL, projectID, api.DefaultPageSize)

	var issues []domain.Issue
	for url != "" {
		var ghIssues []githubIssue
		next, err := c.doRequest(ctx, url, &ghIssues)
		if err != nil {
			return nil, fmt.Errorf("failed to get issues: %w", err)
		}
		for _, gi := range ghIssues {
			issues = append(issues, c.convertIssue(gi, projectID))
		}
		url = next
	}

	return issues, nil
}

// GetLanguages retrieves the language breakdown (bytes per language) of a repository.
func (c *Client) GetLanguages(ctx context.Context, projectID string) ([]domain.Language, error) {
	url := fmt.Sprintf("%s/repos/%s/languages", c.baseURL, projectID)

	var shares map[string]float64
	if _, err := c.doRequest(ctx, url, &shares); err != nil {
		return nil, fmt.Errorf("failed to get languages: %w", err)
	}

	return api.RankLanguages(shares), nil
}

// doRequest performs an HTTP request to GitHub API.
// Returns the URL of the next page, or "" when there is none.
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return nextPageURL(resp.Header.Get("Link")), nil
}

// nextPageURL extracts the rel="next" target from a Link header.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(strings.TrimSpace(part), ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}

// convertProjects converts GitHub repositories to domain models.
func (c *Client) convertProjects(ghRepos []githubRepository) []domain.Project {
	projects := make([]domain.Project, 0, len(ghRepos))
	for _, repo := range ghRepos {
		projects = append(projects, domain.Project{
			ID:       repo.FullName,
			Name:     repo.Name,
			WebURL:   repo.HTMLURL,
			Platform: domain.PlatformGitHub,
		})
	}
	return projects
}

// convertIssue converts a GitHub issue to domain model.
func (c *Client) convertIssue(gi githubIssue, projectID string) domain.Issue {
	// Extract repository name from projectID (owner/repo)
	repository := projectID
	if parts := strings.Split(projectID, "/"); len(parts) == 2 {
		repository = parts[1]
	}

	state := domain.IssueStateOpen
	if gi.State == "closed" {
		state = domain.IssueStateClosed
	}

	return domain.Issue{
		ID:            fmt.Sprintf("%s:%d", domain.PlatformGitHub, gi.ID),
		Number:        gi.Number,
		Title:         gi.Title,
		URL:           gi.URL,
		WebURL:        gi.HTMLURL,
		State:         state,
		ClosedAt:      gi.ClosedAt,
		IsPullRequest: gi.PullRequest != nil,
		ProjectID:     projectID,
		Repository:    repository,
	}
}

// GitHub API response types
type githubRepository struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

type githubIssue struct {
	ID          int64            `json:"id"`
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	URL         string           `json:"url"`
	HTMLURL     string           `json:"html_url"`
	State       string           `json:"state"`
	ClosedAt    *time.Time       `json:"closed_at"`
	PullRequest *json.RawMessage `json:"pull_request"`
}
