package view

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/validation"
)

func book(id, title, author string, status models.Status) models.Book {
	return models.Book{ID: id, Title: title, Author: author, Status: status}
}

func ids(books []models.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func randomBooks(r *rand.Rand, n int) []models.Book {
	genres := []models.Genre{models.GenreFantasy, models.GenreMystery, models.GenreHistory}
	languages := []models.Language{models.LanguageEnglish, models.LanguageFrench}
	authors := []string{"Tolkien", "Christie", "Le Guin", "Herbert"}

	books := make([]models.Book, n)
	for i := range books {
		b := models.Book{
			ID:        fmt.Sprintf("b%d", i),
			Title:     fmt.Sprintf("Title %d", r.Intn(50)),
			Author:    authors[r.Intn(len(authors))],
			Status:    models.Statuses[r.Intn(len(models.Statuses))],
			Favorite:  r.Intn(3) == 0,
			CreatedAt: time.Unix(int64(r.Intn(1000)), 0),
		}
		if r.Intn(4) > 0 {
			b.Genre = models.Ptr(genres[r.Intn(len(genres))])
		}
		if r.Intn(4) > 0 {
			b.Language = models.Ptr(languages[r.Intn(len(languages))])
		}
		if r.Intn(3) > 0 {
			b.Rating = models.Ptr(r.Intn(11))
		}
		if r.Intn(2) == 0 {
			d := models.NewDate(2020+r.Intn(4), time.Month(1+r.Intn(12)), 1+r.Intn(28))
			b.FinishedAt = &d
		}
		if r.Intn(2) == 0 {
			b.Publisher = models.Ptr("Allen & Unwin")
		}
		books[i] = b
	}
	return books
}

func randomCriteria(r *rand.Rand) Criteria {
	pick := func(options ...string) string { return options[r.Intn(len(options))] }
	return Criteria{
		Genre:    pick("", "", "FANTASY", "MYSTERY"),
		Language: pick("", "", "EN", "FR"),
		Status:   pick("", "", "READING", "COMPLETED", "WISHLIST"),
		Query:    pick("", "", "tolkien", "TITLE 1", "unwin", "zzz"),
		Sort:     SortKeys[r.Intn(len(SortKeys))],
	}
}

func TestDeriveNoCriteriaKeepsOrder(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		books := randomBooks(r, r.Intn(20))
		got := Derive(books, Criteria{})
		assert.Equal(t, ids(books), ids(got))
	}
}

func TestDeriveSoundAndComplete(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		books := randomBooks(r, 25)
		c := randomCriteria(r)
		got := Derive(books, c)

		inResult := make(map[string]bool, len(got))
		for _, b := range got {
			assert.True(t, Matches(b, c), "book %s in result must match %+v", b.ID, c)
			inResult[b.ID] = true
		}
		for _, b := range books {
			if Matches(b, c) {
				assert.True(t, inResult[b.ID], "matching book %s missing for %+v", b.ID, c)
			}
		}
	}
}

func TestDeriveDoesNotMutateInput(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	books := randomBooks(r, 30)
	before := ids(books)

	_ = Derive(books, Criteria{Sort: SortRatingDesc})
	_ = Derive(books, Criteria{Sort: SortTitleAsc, Query: "title"})

	assert.Equal(t, before, ids(books))
}

func TestRatingSortIsMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 50; i++ {
		books := randomBooks(r, 20)

		asc := Derive(books, Criteria{Sort: SortRatingAsc})
		for j := 1; j < len(asc); j++ {
			assert.LessOrEqual(t, rating(asc[j-1]), rating(asc[j]))
		}

		desc := Derive(books, Criteria{Sort: SortRatingDesc})
		for j := 1; j < len(desc); j++ {
			assert.GreaterOrEqual(t, rating(desc[j-1]), rating(desc[j]))
		}
	}
}

func TestFavoritesFirstIsStable(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		books := randomBooks(r, 20)
		got := Derive(books, Criteria{Sort: SortFavoritesFirst})

		var wantFav, wantRest []string
		for _, b := range books {
			if b.Favorite {
				wantFav = append(wantFav, b.ID)
			} else {
				wantRest = append(wantRest, b.ID)
			}
		}
		assert.Equal(t, append(wantFav, wantRest...), ids(got))
	}
}

func TestMissingValuesPolicy(t *testing.T) {
	rated := book("rated", "A", "x", models.StatusCompleted)
	rated.Rating = models.Ptr(3)
	zero := book("zero", "B", "x", models.StatusCompleted)
	zero.Rating = models.Ptr(0)
	unrated := book("unrated", "C", "x", models.StatusCompleted)

	// missing rating sorts with the zeros, input order kept among ties
	assert.Equal(t, []string{"zero", "unrated", "rated"}, ids(Derive([]models.Book{rated, zero, unrated}, Criteria{Sort: SortRatingAsc})))

	finished := book("finished", "A", "x", models.StatusCompleted)
	finished.FinishedAt = models.DatePtr("2023-05-01")
	unfinished := book("unfinished", "B", "x", models.StatusReading)

	assert.Equal(t, []string{"unfinished", "finished"}, ids(Derive([]models.Book{finished, unfinished}, Criteria{Sort: SortFinishedAtAsc})))
	assert.Equal(t, []string{"finished", "unfinished"}, ids(Derive([]models.Book{unfinished, finished}, Criteria{Sort: SortFinishedAtDesc})))
}

func TestStatusAndQueryScenario(t *testing.T) {
	hobbit := book("1", "The Hobbit", "J.R.R. Tolkien", models.StatusReading)
	silmarillion := book("2", "The Silmarillion", "J.R.R. Tolkien", models.StatusWishlist)
	dune := book("3", "Dune", "Frank Herbert", models.StatusReading)
	poirot := book("4", "Murder on the Orient Express", "Agatha Christie", models.StatusCompleted)

	got := Derive([]models.Book{silmarillion, dune, hobbit, poirot}, Criteria{Status: "READING", Query: "tolkien"})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestQueryFields(t *testing.T) {
	b := book("1", "Dune", "Frank Herbert", models.StatusReading)
	b.ISBN13 = models.Ptr("9780441013593")
	b.Publisher = models.Ptr("Ace Books")

	assert.True(t, Matches(b, Criteria{Query: "ace"}))
	assert.True(t, Matches(b, Criteria{Query: "044101"}))
	assert.True(t, Matches(b, Criteria{Query: "  FRANK "}))
	assert.False(t, Matches(b, Criteria{Query: "dune frank"}), "query must not match across fields")
	assert.True(t, Matches(b, Criteria{Query: "   "}), "blank query is inactive")

	noOptional := book("2", "Dune", "Frank Herbert", models.StatusReading)
	assert.False(t, Matches(noOptional, Criteria{Query: "ace"}))
}

func TestGenreAndLanguageFilters(t *testing.T) {
	a := book("a", "A", "x", models.StatusReading)
	a.Genre = models.Ptr(models.GenreFantasy)
	a.Language = models.Ptr(models.LanguageFrench)
	b := book("b", "B", "x", models.StatusReading)

	assert.Equal(t, []string{"a"}, ids(Derive([]models.Book{a, b}, Criteria{Genre: "FANTASY"})))
	assert.Equal(t, []string{"a"}, ids(Derive([]models.Book{a, b}, Criteria{Language: "FR"})))
	assert.Empty(t, Derive([]models.Book{a, b}, Criteria{Language: "EN"}))
}

func TestUnknownSortKeyIsNoop(t *testing.T) {
	books := []models.Book{book("2", "B", "x", models.StatusReading), book("1", "A", "x", models.StatusReading)}
	assert.Equal(t, []string{"2", "1"}, ids(Derive(books, Criteria{Sort: "byMood"})))
}

func TestTitleAndCreatedSorts(t *testing.T) {
	a := book("a", "apple", "x", models.StatusReading)
	a.CreatedAt = time.Unix(10, 0)
	b := book("b", "Banana", "x", models.StatusReading)
	b.CreatedAt = time.Unix(20, 0)

	assert.Equal(t, []string{"a", "b"}, ids(Derive([]models.Book{b, a}, Criteria{Sort: SortTitleAsc})))
	assert.Equal(t, []string{"b", "a"}, ids(Derive([]models.Book{a, b}, Criteria{Sort: SortTitleDesc})))
	assert.Equal(t, []string{"b", "a"}, ids(Derive([]models.Book{a, b}, Criteria{Sort: SortCreatedAtDesc})))
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey("RATINGDESC")
	assert.True(t, ok)
	assert.Equal(t, SortRatingDesc, k)

	k, ok = ParseSortKey("")
	assert.True(t, ok)
	assert.Equal(t, SortNone, k)

	_, ok = ParseSortKey("random")
	assert.False(t, ok)
}

func TestCriteriaReset(t *testing.T) {
	c := Criteria{Genre: "FANTASY", Sort: SortRatingAsc}
	assert.True(t, c.Active())
	c.Reset()
	assert.False(t, c.Active())
	assert.Equal(t, Criteria{}, c)
}

func TestSummarize(t *testing.T) {
	a := book("a", "A", "x", models.StatusCompleted)
	a.Rating = models.Ptr(8)
	a.Pages = models.Ptr(300)
	a.Favorite = true
	b := book("b", "B", "x", models.StatusReading)
	b.Rating = models.Ptr(5)
	b.Pages = models.Ptr(100)
	c := book("c", "C", "x", models.StatusWishlist)

	s := Summarize([]models.Book{a, b, c})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.ByStatus[models.StatusCompleted])
	assert.Equal(t, 1, s.ByStatus[models.StatusReading])
	assert.Equal(t, 1, s.ByStatus[models.StatusWishlist])
	assert.Equal(t, 1, s.Favorites)
	assert.Equal(t, 2, s.Rated)
	assert.InDelta(t, 6.5, s.AverageRating, 0.001)
	assert.Equal(t, 300, s.PagesRead)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Zero(t, empty.AverageRating)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "7/10", FormatRating(models.Ptr(7)))
	assert.Equal(t, Placeholder, FormatRating(nil))
	assert.Equal(t, "45%", FormatProgress(models.Ptr(45)))
	assert.Equal(t, "2024-03-09", FormatDate(models.DatePtr("2024-03-09")))
	assert.Equal(t, Placeholder, FormatOptional(models.Ptr("  ")))
	assert.Equal(t, "Science fiction", GenreLabel(models.Ptr(models.GenreScienceFiction)))
	assert.Equal(t, "French", LanguageLabel(models.Ptr(models.LanguageFrench)))
	assert.Equal(t, "Wishlist", StatusLabel(models.StatusWishlist))
	assert.Equal(t, "Lord of…", Truncate("Lord of the Rings", 8))
	assert.Equal(t, "short", Truncate("short", 8))
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(" science-fiction ", "en", "reading", "  tolkien ", "RATINGDESC")
	require.NoError(t, err)
	assert.Equal(t, Criteria{
		Genre:    "SCIENCE_FICTION",
		Language: "EN",
		Status:   "READING",
		Query:    "tolkien",
		Sort:     SortRatingDesc,
	}, c)

	c, err = ParseCriteria("", "", "", "", "")
	require.NoError(t, err)
	assert.False(t, c.Active())

	_, err = ParseCriteria("cooking", "xx", "lost", "", "newest")
	fe, ok := validation.AsFieldErrors(err)
	require.True(t, ok)
	assert.Len(t, fe, 4)
	assert.Contains(t, fe, "sort")
}
