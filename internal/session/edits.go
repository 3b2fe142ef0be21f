package session

import (
	"context"
	"slices"

	"github.com/drallgood/bookshelf/internal/api/bookshelf"
	"github.com/drallgood/bookshelf/internal/models"
)

// The owner operations below call the API with the held token and fold the
// response into the cache. A response for a token that has since been
// cleared or replaced is returned to the caller but not cached.

// AddBook creates a book on the owned bookshelf
func (s *Store) AddBook(ctx context.Context, input models.BookInput) (*models.Book, error) {
	token, gen := s.current()
	if token == "" {
		return nil, bookshelf.ErrMissingToken
	}
	book, err := s.api.CreateBook(ctx, token, input)
	if err != nil {
		return nil, err
	}
	s.commit(func(cur *Snapshot) bool {
		if s.gen != gen {
			return false
		}
		cur.Books = append(slices.Clone(cur.Books), *book)
		return true
	})
	return book, nil
}

// UpdateBook applies patch to the book with id
func (s *Store) UpdateBook(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error) {
	token, gen := s.current()
	if token == "" {
		return nil, bookshelf.ErrMissingToken
	}
	book, err := s.api.UpdateBook(ctx, token, id, patch)
	if err != nil {
		return nil, err
	}
	s.commit(func(cur *Snapshot) bool {
		if s.gen != gen {
			return false
		}
		books := slices.Clone(cur.Books)
		if i := slices.IndexFunc(books, func(b models.Book) bool { return b.ID == book.ID }); i >= 0 {
			books[i] = *book
		} else {
			books = append(books, *book)
		}
		cur.Books = books
		return true
	})
	return book, nil
}

// RemoveBook deletes the book with id
func (s *Store) RemoveBook(ctx context.Context, id string) error {
	token, gen := s.current()
	if token == "" {
		return bookshelf.ErrMissingToken
	}
	if err := s.api.DeleteBook(ctx, token, id); err != nil {
		return err
	}
	s.commit(func(cur *Snapshot) bool {
		if s.gen != gen {
			return false
		}
		cur.Books = slices.DeleteFunc(slices.Clone(cur.Books), func(b models.Book) bool { return b.ID == id })
		return true
	})
	return nil
}

// UpdateBookshelf renames or redescribes the owned bookshelf
func (s *Store) UpdateBookshelf(ctx context.Context, input models.BookshelfInput) (*models.Bookshelf, error) {
	token, gen := s.current()
	if token == "" {
		return nil, bookshelf.ErrMissingToken
	}
	shelf, err := s.api.UpdateBookshelf(ctx, token, input)
	if err != nil {
		return nil, err
	}
	s.commit(func(cur *Snapshot) bool {
		if s.gen != gen {
			return false
		}
		updated := *shelf
		cur.Bookshelf = &updated
		if cur.State == Unverified {
			cur.State = Owner
		}
		return true
	})
	return shelf, nil
}

// DeleteBookshelf deletes the owned bookshelf and then clears the session
func (s *Store) DeleteBookshelf(ctx context.Context) error {
	token, _ := s.current()
	if token == "" {
		return bookshelf.ErrMissingToken
	}
	if err := s.api.DeleteBookshelf(ctx, token); err != nil {
		return err
	}
	return s.ClearBookshelf(ctx)
}
