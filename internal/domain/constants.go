package domain

// Platform constants
const (
	// PlatformGitLab represents the GitLab hosting platform
	PlatformGitLab = "gitlab"
	// PlatformGitHub represents the GitHub hosting platform
	PlatformGitHub = "github"
)
