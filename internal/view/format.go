package view

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/drallgood/bookshelf/internal/models"
)

// Placeholder is shown for missing values
const Placeholder = "—"

// FormatRating renders a rating out of ten
func FormatRating(r *int) string {
	if r == nil {
		return Placeholder
	}
	return fmt.Sprintf("%d/10", *r)
}

// FormatProgress renders a reading progress percentage
func FormatProgress(p *int) string {
	if p == nil {
		return Placeholder
	}
	return fmt.Sprintf("%d%%", *p)
}

// FormatDate renders a calendar date
func FormatDate(d *models.Date) string {
	if d == nil {
		return Placeholder
	}
	return d.String()
}

// FormatOptional renders an optional string
func FormatOptional(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return Placeholder
	}
	return *s
}

// GenreLabel renders an optional genre
func GenreLabel(g *models.Genre) string {
	if g == nil {
		return Placeholder
	}
	return g.Label()
}

// LanguageLabel renders an optional language
func LanguageLabel(l *models.Language) string {
	if l == nil {
		return Placeholder
	}
	return l.Label()
}

// StatusLabel renders a reading status
func StatusLabel(s models.Status) string {
	return s.Label()
}

// FavoriteMark is a star for favorites and blank otherwise
func FavoriteMark(b models.Book) string {
	if b.Favorite {
		return "★"
	}
	return ""
}

// Truncate shortens s to at most n runes, ending with an ellipsis when cut
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
