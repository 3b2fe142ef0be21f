package view

import (
	"strings"

	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/validation"
)

// ParseCriteria builds criteria from user supplied strings. Enumeration
// values are matched case-insensitively and "-" may stand for "_". Blank
// values leave the predicate inactive.
func ParseCriteria(genre, language, status, query, sort string) (Criteria, error) {
	fe := validation.FieldErrors{}
	c := Criteria{Query: strings.TrimSpace(query)}

	if g := enumValue(genre); g != "" {
		if !models.Genre(g).Valid() {
			fe["genre"] = "is not a known genre"
		}
		c.Genre = g
	}
	if l := enumValue(language); l != "" {
		if !models.Language(l).Valid() {
			fe["language"] = "is not a known language"
		}
		c.Language = l
	}
	if s := enumValue(status); s != "" {
		if !models.Status(s).Valid() {
			fe["status"] = "must be one of WISHLIST, READING, COMPLETED"
		}
		c.Status = s
	}
	key, ok := ParseSortKey(sort)
	if !ok {
		fe["sort"] = "is not a known sort key"
	}
	c.Sort = key

	if len(fe) > 0 {
		return Criteria{}, fe
	}
	return c, nil
}

func enumValue(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}
