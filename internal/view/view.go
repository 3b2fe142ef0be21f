// Package view derives the displayed subset and order of a book list from
// user chosen criteria. Everything here is pure: inputs are never modified.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/drallgood/bookshelf/internal/models"
)

// Derive filters books by every active predicate of c and orders the result
// by c.Sort. The input slice and its elements are left untouched.
func Derive(books []models.Book, c Criteria) []models.Book {
	out := Filter(books, c)
	Sort(out, c.Sort)
	return out
}

// Filter returns a new slice with the books matching every active predicate,
// in input order
func Filter(books []models.Book, c Criteria) []models.Book {
	genre := strings.TrimSpace(c.Genre)
	language := strings.TrimSpace(c.Language)
	status := strings.TrimSpace(c.Status)
	query := strings.ToLower(strings.TrimSpace(c.Query))

	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if genre != "" && (b.Genre == nil || string(*b.Genre) != genre) {
			continue
		}
		if language != "" && (b.Language == nil || string(*b.Language) != language) {
			continue
		}
		if status != "" && string(b.Status) != status {
			continue
		}
		if query != "" && !strings.Contains(searchText(b), query) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Matches reports whether b satisfies every active predicate of c
func Matches(b models.Book, c Criteria) bool {
	return len(Filter([]models.Book{b}, c)) == 1
}

// searchText is the lower-cased haystack for free text search. Fields are
// joined with a newline so a query cannot match across two fields.
func searchText(b models.Book) string {
	parts := []string{b.Title, b.Author}
	if b.ISBN13 != nil {
		parts = append(parts, *b.ISBN13)
	}
	if b.Publisher != nil {
		parts = append(parts, *b.Publisher)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// Sort orders books in place by key. The sort is stable; unknown keys are a no-op.
func Sort(books []models.Book, key SortKey) {
	less := lessFunc(key)
	if less == nil {
		return
	}
	sort.SliceStable(books, func(i, j int) bool {
		return less(books[i], books[j])
	})
}

func lessFunc(key SortKey) func(a, b models.Book) bool {
	switch key {
	case SortFavoritesFirst:
		return func(a, b models.Book) bool { return a.Favorite && !b.Favorite }
	case SortRatingAsc:
		return func(a, b models.Book) bool { return rating(a) < rating(b) }
	case SortRatingDesc:
		return func(a, b models.Book) bool { return rating(a) > rating(b) }
	case SortFinishedAtAsc:
		return func(a, b models.Book) bool { return finishedAt(a).Before(finishedAt(b)) }
	case SortFinishedAtDesc:
		return func(a, b models.Book) bool { return finishedAt(a).After(finishedAt(b)) }
	case SortTitleAsc:
		return func(a, b models.Book) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortTitleDesc:
		return func(a, b models.Book) bool { return strings.ToLower(a.Title) > strings.ToLower(b.Title) }
	case SortCreatedAtDesc:
		return func(a, b models.Book) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	return nil
}

// rating treats a missing rating as 0
func rating(b models.Book) int {
	if b.Rating == nil {
		return 0
	}
	return *b.Rating
}

// finishedAt treats a missing finish date as the Unix epoch
func finishedAt(b models.Book) time.Time {
	if b.FinishedAt == nil {
		return time.Unix(0, 0).UTC()
	}
	return b.FinishedAt.Time
}
