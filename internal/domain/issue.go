package domain

import "time"

// IssueState is the lifecycle state of an issue on the hosting platform.
type IssueState string

const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
)

// Issue represents an issue from GitLab or GitHub.
type Issue struct {
	ID            string // Platform-qualified stable identifier (e.g., "github:1234")
	Number        int
	Title         string
	URL           string // Canonical URL as reported by the API (may be API-style)
	WebURL        string
	State         IssueState
	ClosedAt      *time.Time // nil while the issue is open
	IsPullRequest bool       // GitHub lists pull requests alongside issues
	ProjectID     string
	Repository    string
}

// IsClosed returns true if the issue has been closed upstream.
func (i Issue) IsClosed() bool {
	return i.State == IssueStateClosed
}
