package bookshelf

import (
	"context"

	"github.com/drallgood/bookshelf/internal/models"
)

// ClientInterface defines the bookshelf API operations.
// This allows for fakes in tests.
type ClientInterface interface {
	CreateBookshelf(ctx context.Context, input models.BookshelfInput) (*models.CreatedBookshelf, error)
	GetBookshelf(ctx context.Context, publicID string) (*models.Bookshelf, error)
	ListBooks(ctx context.Context, publicID string) ([]models.Book, error)

	GetOwnBookshelf(ctx context.Context, token string) (*models.Bookshelf, error)
	ListOwnBooks(ctx context.Context, token string) ([]models.Book, error)
	UpdateBookshelf(ctx context.Context, token string, input models.BookshelfInput) (*models.Bookshelf, error)
	DeleteBookshelf(ctx context.Context, token string) error

	CreateBook(ctx context.Context, token string, input models.BookInput) (*models.Book, error)
	UpdateBook(ctx context.Context, token, bookID string, patch models.BookPatch) (*models.Book, error)
	DeleteBook(ctx context.Context, token, bookID string) error
}

// Ensure that the Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)
