package api

import (
	"context"

	"github.com/vilaca/org-issue-sync/internal/domain"
)

// Source defines the interface for issue-hosting platform clients.
// Consumers depend on this interface, not on a concrete platform client.
type Source interface {
	// GetProjects returns all projects accessible by the configured credentials.
	GetProjects(ctx context.Context) ([]domain.Project, error)

	// GetIssues returns every issue of a project, open and closed.
	GetIssues(ctx context.Context, projectID string) ([]domain.Issue, error)

	// GetLanguages returns the project's language breakdown, highest share first.
	GetLanguages(ctx context.Context, projectID string) ([]domain.Language, error)
}

// ClientConfig holds common configuration for API clients.
type ClientConfig struct {
	BaseURL string
	Token   string
}
