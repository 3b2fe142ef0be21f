package models

import "time"

// Bookshelf is a named collection of books, addressed publicly by PublicID
type Bookshelf struct {
	PublicID    string    `json:"publicId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreatedBookshelf is returned once, at creation. EditToken cannot be fetched again.
type CreatedBookshelf struct {
	Bookshelf
	EditToken string `json:"editToken"`
}

// BookshelfInput is the payload for creating or renaming a bookshelf
type BookshelfInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// APIError is the error half of the API envelope
type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Envelope is the shape of every API response
type Envelope[T any] struct {
	Data  *T        `json:"data"`
	Error *APIError `json:"error"`
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
