package validation

import (
	"strconv"
	"strings"

	"github.com/drallgood/bookshelf/internal/models"
)

// BookForm is a book as typed by the user: every field is raw text
type BookForm struct {
	Title         string
	Author        string
	Pages         string
	CoverURL      string
	Description   string
	Publisher     string
	PublishedDate string
	ISBN13        string
	Genre         string
	Language      string
	Status        string
	Progress      string
	StartedAt     string
	FinishedAt    string
	ReadCount     string
	Rating        string
	Notes         string
	Favorite      bool
}

// Normalize validates the form and returns the book it describes.
// Status defaults to WISHLIST; blank optional fields are dropped.
func (f BookForm) Normalize() (models.BookInput, error) {
	fe := FieldErrors{}
	input := models.BookInput{
		Title:         strings.TrimSpace(f.Title),
		Author:        strings.TrimSpace(f.Author),
		CoverURL:      optString(f.CoverURL),
		Description:   optString(f.Description),
		Publisher:     optString(f.Publisher),
		PublishedDate: optString(f.PublishedDate),
		ISBN13:        optISBN(f.ISBN13),
		Genre:         optEnum[models.Genre](f.Genre),
		Language:      optEnum[models.Language](f.Language),
		Status:        models.StatusWishlist,
		Notes:         optString(f.Notes),
		Favorite:      f.Favorite,
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		input.Status = models.Status(strings.ToUpper(s))
	}
	input.Pages = optInt("pages", f.Pages, fe)
	input.Progress = optInt("progress", f.Progress, fe)
	input.Rating = optInt("rating", f.Rating, fe)
	if rc := optInt("readCount", f.ReadCount, fe); rc != nil {
		input.ReadCount = *rc
	}
	input.StartedAt = optDate("startedAt", f.StartedAt, fe)
	input.FinishedAt = optDate("finishedAt", f.FinishedAt, fe)

	check(input, fe)
	checkDates(input.StartedAt, input.FinishedAt, fe)
	if err := fe.err(); err != nil {
		return models.BookInput{}, err
	}
	return input, nil
}

// PatchForm is a partial edit as typed by the user. Nil fields were not provided.
type PatchForm struct {
	Title         *string
	Author        *string
	Pages         *string
	CoverURL      *string
	Description   *string
	Publisher     *string
	PublishedDate *string
	ISBN13        *string
	Genre         *string
	Language      *string
	Status        *string
	Progress      *string
	StartedAt     *string
	FinishedAt    *string
	ReadCount     *string
	Rating        *string
	Notes         *string
	Favorite      *bool
}

// Normalize validates the provided fields and returns the patch they describe
func (f PatchForm) Normalize() (models.BookPatch, error) {
	fe := FieldErrors{}
	var patch models.BookPatch

	if f.Title != nil {
		patch.Title = models.Ptr(strings.TrimSpace(*f.Title))
	}
	if f.Author != nil {
		patch.Author = models.Ptr(strings.TrimSpace(*f.Author))
	}
	patch.CoverURL = optStringPtr(f.CoverURL)
	patch.Description = optStringPtr(f.Description)
	patch.Publisher = optStringPtr(f.Publisher)
	patch.PublishedDate = optStringPtr(f.PublishedDate)
	if f.ISBN13 != nil {
		patch.ISBN13 = optISBN(*f.ISBN13)
	}
	if f.Genre != nil {
		patch.Genre = optEnum[models.Genre](*f.Genre)
	}
	if f.Language != nil {
		patch.Language = optEnum[models.Language](*f.Language)
	}
	if f.Status != nil {
		patch.Status = optEnum[models.Status](*f.Status)
	}
	if f.Pages != nil {
		patch.Pages = optInt("pages", *f.Pages, fe)
	}
	if f.Progress != nil {
		patch.Progress = optInt("progress", *f.Progress, fe)
	}
	if f.Rating != nil {
		patch.Rating = optInt("rating", *f.Rating, fe)
	}
	if f.ReadCount != nil {
		patch.ReadCount = optInt("readCount", *f.ReadCount, fe)
	}
	if f.StartedAt != nil {
		patch.StartedAt = optDate("startedAt", *f.StartedAt, fe)
	}
	if f.FinishedAt != nil {
		patch.FinishedAt = optDate("finishedAt", *f.FinishedAt, fe)
	}
	patch.Favorite = f.Favorite

	if len(fe) > 0 {
		return models.BookPatch{}, fe
	}
	if err := ValidatePatch(patch); err != nil {
		return models.BookPatch{}, err
	}
	return patch, nil
}

// BookshelfForm is a bookshelf as typed by the user
type BookshelfForm struct {
	Name        string
	Description string
}

// Normalize validates the form and returns the bookshelf payload
func (f BookshelfForm) Normalize() (models.BookshelfInput, error) {
	input := models.BookshelfInput{
		Name:        strings.TrimSpace(f.Name),
		Description: optString(f.Description),
	}
	if err := ValidateBookshelf(input); err != nil {
		return models.BookshelfInput{}, err
	}
	return input, nil
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return optString(*s)
}

// NormalizeISBN strips the separators people type into ISBNs
func NormalizeISBN(s string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s))
}

func optISBN(s string) *string {
	return optString(NormalizeISBN(s))
}

func optEnum[T ~string](s string) *T {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v := T(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	return &v
}

func optInt(field, s string, fe FieldErrors) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fe.add(field, "must be a whole number")
		return nil
	}
	return &n
}

func optDate(field, s string, fe FieldErrors) *models.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		fe.add(field, "must be a date (YYYY-MM-DD)")
		return nil
	}
	return &d
}
