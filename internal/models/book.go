package models

import "time"

// Book is a book on a bookshelf as returned by the API
type Book struct {
	ID            string    `json:"id"`
	BookshelfID   string    `json:"bookshelfId"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Pages         *int      `json:"pages,omitempty"`
	CoverURL      *string   `json:"coverUrl,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Publisher     *string   `json:"publisher,omitempty"`
	PublishedDate *string   `json:"publishedDate,omitempty"`
	ISBN13        *string   `json:"isbn13,omitempty"`
	Genre         *Genre    `json:"genre,omitempty"`
	Language      *Language `json:"language,omitempty"`
	Status        Status    `json:"status"`
	Progress      *int      `json:"progress,omitempty"`
	StartedAt     *Date     `json:"startedAt,omitempty"`
	FinishedAt    *Date     `json:"finishedAt,omitempty"`
	ReadCount     int       `json:"readCount"`
	Rating        *int      `json:"rating,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Favorite      bool      `json:"favorite"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Input returns the writable part of the book
func (b Book) Input() BookInput {
	return BookInput{
		Title:         b.Title,
		Author:        b.Author,
		Pages:         b.Pages,
		CoverURL:      b.CoverURL,
		Description:   b.Description,
		Publisher:     b.Publisher,
		PublishedDate: b.PublishedDate,
		ISBN13:        b.ISBN13,
		Genre:         b.Genre,
		Language:      b.Language,
		Status:        b.Status,
		Progress:      b.Progress,
		StartedAt:     b.StartedAt,
		FinishedAt:    b.FinishedAt,
		ReadCount:     b.ReadCount,
		Rating:        b.Rating,
		Notes:         b.Notes,
		Favorite:      b.Favorite,
	}
}

// BookInput is the payload used to create a book
type BookInput struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Author        string    `json:"author" validate:"required,max=200"`
	Pages         *int      `json:"pages,omitempty" validate:"omitempty,min=1,max=100000"`
	CoverURL      *string   `json:"coverUrl,omitempty" validate:"omitempty,url"`
	Description   *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	Publisher     *string   `json:"publisher,omitempty" validate:"omitempty,max=200"`
	PublishedDate *string   `json:"publishedDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ISBN13        *string   `json:"isbn13,omitempty" validate:"omitempty,isbn13"`
	Genre         *Genre    `json:"genre,omitempty" validate:"omitempty,genre"`
	Language      *Language `json:"language,omitempty" validate:"omitempty,language"`
	Status        Status    `json:"status" validate:"required,status"`
	Progress      *int      `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	StartedAt     *Date     `json:"startedAt,omitempty"`
	FinishedAt    *Date     `json:"finishedAt,omitempty"`
	ReadCount     int       `json:"readCount" validate:"min=0"`
	Rating        *int      `json:"rating,omitempty" validate:"omitempty,min=0,max=10"`
	Notes         *string   `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Favorite      bool      `json:"favorite"`
}

// BookPatch is the payload of a partial update. Nil fields are left untouched.
type BookPatch struct {
	Title         *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Author        *string   `json:"author,omitempty" validate:"omitempty,min=1,max=200"`
	Pages         *int      `json:"pages,omitempty" validate:"omitempty,min=1,max=100000"`
	CoverURL      *string   `json:"coverUrl,omitempty" validate:"omitempty,url"`
	Description   *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	Publisher     *string   `json:"publisher,omitempty" validate:"omitempty,max=200"`
	PublishedDate *string   `json:"publishedDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ISBN13        *string   `json:"isbn13,omitempty" validate:"omitempty,isbn13"`
	Genre         *Genre    `json:"genre,omitempty" validate:"omitempty,genre"`
	Language      *Language `json:"language,omitempty" validate:"omitempty,language"`
	Status        *Status   `json:"status,omitempty" validate:"omitempty,status"`
	Progress      *int      `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	StartedAt     *Date     `json:"startedAt,omitempty"`
	FinishedAt    *Date     `json:"finishedAt,omitempty"`
	ReadCount     *int      `json:"readCount,omitempty" validate:"omitempty,min=0"`
	Rating        *int      `json:"rating,omitempty" validate:"omitempty,min=0,max=10"`
	Notes         *string   `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Favorite      *bool     `json:"favorite,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p BookPatch) Empty() bool {
	return p == BookPatch{}
}
