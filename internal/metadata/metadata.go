// Package metadata looks up book details from public catalogues to help fill
// in the add-book form. Lookups are best effort: failures are logged and
// surface as empty results.
package metadata

import (
	"context"
	"strconv"
	"strings"

	"github.com/drallgood/bookshelf/internal/validation"
	"github.com/drallgood/bookshelf/internal/view"
)

// MaxDescription is the longest description a book accepts, in characters
const MaxDescription = 5000

// DefaultLimit is the number of suggestions returned when Query.Limit is unset
const DefaultLimit = 5

// Query describes a metadata search
type Query struct {
	Title  string
	Author string
	Limit  int
}

// Normalized returns the query with whitespace trimmed and the limit defaulted
func (q Query) Normalized() Query {
	q.Title = strings.TrimSpace(q.Title)
	q.Author = strings.TrimSpace(q.Author)
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Empty reports whether there is nothing to search for
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Title) == "" && strings.TrimSpace(q.Author) == ""
}

// Suggestion is one candidate book returned by a provider
type Suggestion struct {
	Key           string `json:"key"`
	Title         string `json:"title"`
	Author        string `json:"author,omitempty"`
	Pages         int    `json:"pages,omitempty"`
	CoverURL      string `json:"coverUrl,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
	ISBN13        string `json:"isbn13,omitempty"`
	Language      string `json:"language,omitempty"`
}

// Provider is a metadata source
type Provider interface {
	// Search returns up to q.Limit suggestions. It never fails; errors yield nil.
	Search(ctx context.Context, q Query) []Suggestion
	// Describe returns the long description for a suggestion key, or "".
	Describe(ctx context.Context, key string) string
	// Name identifies the provider in logs and output
	Name() string
}

// ApplySuggestion copies suggestion fields into form fields the user left blank
func ApplySuggestion(form *validation.BookForm, s Suggestion) {
	if form == nil {
		return
	}
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" && v != "" {
			*dst = v
		}
	}
	fill(&form.Title, s.Title)
	fill(&form.Author, s.Author)
	if s.Pages > 0 {
		fill(&form.Pages, strconv.Itoa(s.Pages))
	}
	fill(&form.CoverURL, s.CoverURL)
	fill(&form.Publisher, s.Publisher)
	fill(&form.PublishedDate, s.PublishedDate)
	fill(&form.ISBN13, s.ISBN13)
	fill(&form.Language, s.Language)
}

// ApplyDescription fills a blank form description with desc, shortened to
// MaxDescription characters so the form still validates.
func ApplyDescription(form *validation.BookForm, desc string) {
	if form == nil || strings.TrimSpace(form.Description) != "" {
		return
	}
	form.Description = view.Truncate(strings.TrimSpace(desc), MaxDescription)
}

// Nop is a provider that never finds anything
type Nop struct{}

func (Nop) Search(context.Context, Query) []Suggestion { return nil }
func (Nop) Describe(context.Context, string) string    { return "" }
func (Nop) Name() string                               { return "none" }
