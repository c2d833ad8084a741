package domain

// Project represents a code repository project.
type Project struct {
	ID       string
	Name     string
	WebURL   string
	Platform string // Hosting platform identifier (e.g., "gitlab", "github")
}

// Language is one entry of a project's language breakdown.
type Language struct {
	Name  string
	Share float64 // Bytes (GitHub) or percentage (GitLab); only used for ranking
}

// ProjectSnapshot holds everything fetched for one project during a run.
type ProjectSnapshot struct {
	Project   Project
	Issues    []Issue
	Languages []Language // Ranked, highest share first
}

// PrimaryLanguage returns the top-ranked language, or "" if none is known.
func (s ProjectSnapshot) PrimaryLanguage() string {
	if len(s.Languages) == 0 {
		return ""
	}
	return s.Languages[0].Name
}
