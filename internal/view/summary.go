package view

import "github.com/drallgood/bookshelf/internal/models"

// Summary aggregates a book list for status lines
type Summary struct {
	Total         int                   `json:"total"`
	ByStatus      map[models.Status]int `json:"byStatus"`
	Favorites     int                   `json:"favorites"`
	Rated         int                   `json:"rated"`
	AverageRating float64               `json:"averageRating"`
	PagesRead     int                   `json:"pagesRead"`
}

// Summarize counts books per status and averages ratings over rated books only
func Summarize(books []models.Book) Summary {
	s := Summary{
		Total:    len(books),
		ByStatus: make(map[models.Status]int, len(models.Statuses)),
	}
	for _, st := range models.Statuses {
		s.ByStatus[st] = 0
	}
	sum := 0
	for _, b := range books {
		s.ByStatus[b.Status]++
		if b.Favorite {
			s.Favorites++
		}
		if b.Rating != nil {
			s.Rated++
			sum += *b.Rating
		}
		if b.Status == models.StatusCompleted && b.Pages != nil {
			s.PagesRead += *b.Pages
		}
	}
	if s.Rated > 0 {
		s.AverageRating = float64(sum) / float64(s.Rated)
	}
	return s
}
