package view

import "strings"

// SortKey selects the single ordering applied to a derived view
type SortKey string

const (
	SortNone           SortKey = ""
	SortFavoritesFirst SortKey = "favoritesFirst"
	SortRatingAsc      SortKey = "ratingAsc"
	SortRatingDesc     SortKey = "ratingDesc"
	SortFinishedAtAsc  SortKey = "finishedAtAsc"
	SortFinishedAtDesc SortKey = "finishedAtDesc"
	SortTitleAsc       SortKey = "titleAsc"
	SortTitleDesc      SortKey = "titleDesc"
	SortCreatedAtDesc  SortKey = "createdAtDesc"
)

// SortKeys lists every known sort key
var SortKeys = []SortKey{
	SortFavoritesFirst,
	SortRatingAsc,
	SortRatingDesc,
	SortFinishedAtAsc,
	SortFinishedAtDesc,
	SortTitleAsc,
	SortTitleDesc,
	SortCreatedAtDesc,
}

// ParseSortKey matches s against the known keys, ignoring case
func ParseSortKey(s string) (SortKey, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortNone, true
	}
	for _, k := range SortKeys {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return SortNone, false
}

// Criteria is the set of filters and the sort key of a view.
// The zero value shows every book in input order.
type Criteria struct {
	Genre    string  `json:"genre,omitempty"`
	Language string  `json:"language,omitempty"`
	Status   string  `json:"status,omitempty"`
	Query    string  `json:"query,omitempty"`
	Sort     SortKey `json:"sort,omitempty"`
}

// Reset clears every filter and the sort key
func (c *Criteria) Reset() {
	*c = Criteria{}
}

// Active reports whether any filter or sort is set
func (c Criteria) Active() bool {
	return c.HasFilters() || c.Sort != SortNone
}

// HasFilters reports whether any predicate is active
func (c Criteria) HasFilters() bool {
	return active(c.Genre) || active(c.Language) || active(c.Status) || active(c.Query)
}

func active(v string) bool {
	return strings.TrimSpace(v) != ""
}
