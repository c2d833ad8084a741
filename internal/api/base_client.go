package api

import (
	"net/http"
	"sort"

	"github.com/vilaca/org-issue-sync/internal/domain"
)

const (
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 100
)

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RankLanguages orders a language breakdown by share, highest first.
// Ties are broken by name so the ranking is stable across runs.
func RankLanguages(shares map[string]float64) []domain.Language {
	languages := make([]domain.Language, 0, len(shares))
	for name, share := range shares {
		languages = append(languages, domain.Language{Name: name, Share: share})
	}

	sort.Slice(languages, func(i, j int) bool {
		if languages[i].Share != languages[j].Share {
			return languages[i].Share > languages[j].Share
		}
		return languages[i].Name < languages[j].Name
	})

	return languages
}
