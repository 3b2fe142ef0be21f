package bookshelf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/models"
)

const (
	// DefaultTimeout is used when the caller passes a zero timeout
	DefaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an unexpected response we keep for logs
	maxErrorBody = 512

	// maxResponseBody bounds how much of any response is read
	maxResponseBody = 32 << 20
)

// Client is a client for the bookshelf API
type Client struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
	maxBody int64
}

// NewClient creates a new bookshelf API client
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Get()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  log.With(map[string]interface{}{"component": "bookshelf_client"}),
		maxBody: maxResponseBody,
	}
}

// CreateBookshelf creates a bookshelf. The returned edit token is shown only once.
func (c *Client) CreateBookshelf(ctx context.Context, input models.BookshelfInput) (*models.CreatedBookshelf, error) {
	return required(call[models.CreatedBookshelf](ctx, c, http.MethodPost, "/bookshelves", "", input))
}

// GetBookshelf fetches a bookshelf by its public ID
func (c *Client) GetBookshelf(ctx context.Context, publicID string) (*models.Bookshelf, error) {
	if publicID == "" {
		return nil, fmt.Errorf("public ID is required")
	}
	return required(call[models.Bookshelf](ctx, c, http.MethodGet, "/bookshelves/"+url.PathEscape(publicID), "", nil))
}

// ListBooks fetches the books of a bookshelf by its public ID
func (c *Client) ListBooks(ctx context.Context, publicID string) ([]models.Book, error) {
	if publicID == "" {
		return nil, fmt.Errorf("public ID is required")
	}
	books, err := call[[]models.Book](ctx, c, http.MethodGet, "/bookshelves/"+url.PathEscape(publicID)+"/books", "", nil)
	if err != nil {
		return nil, err
	}
	return derefBooks(books), nil
}

// GetOwnBookshelf fetches the bookshelf unlocked by token
func (c *Client) GetOwnBookshelf(ctx context.Context, token string) (*models.Bookshelf, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return required(call[models.Bookshelf](ctx, c, http.MethodGet, "/me/bookshelf", token, nil))
}

// ListOwnBooks fetches the books of the bookshelf unlocked by token
func (c *Client) ListOwnBooks(ctx context.Context, token string) ([]models.Book, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	books, err := call[[]models.Book](ctx, c, http.MethodGet, "/me/bookshelf/books", token, nil)
	if err != nil {
		return nil, err
	}
	return derefBooks(books), nil
}

// UpdateBookshelf renames the bookshelf unlocked by token
func (c *Client) UpdateBookshelf(ctx context.Context, token string, input models.BookshelfInput) (*models.Bookshelf, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return required(call[models.Bookshelf](ctx, c, http.MethodPatch, "/me/bookshelf", token, input))
}

// DeleteBookshelf deletes the bookshelf unlocked by token together with its books
func (c *Client) DeleteBookshelf(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, "/me/bookshelf", token, nil)
	return err
}

// CreateBook adds a book to the bookshelf unlocked by token
func (c *Client) CreateBook(ctx context.Context, token string, input models.BookInput) (*models.Book, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return required(call[models.Book](ctx, c, http.MethodPost, "/me/bookshelf/books", token, input))
}

// UpdateBook applies a partial update to a book
func (c *Client) UpdateBook(ctx context.Context, token, bookID string, patch models.BookPatch) (*models.Book, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if bookID == "" {
		return nil, fmt.Errorf("book ID is required")
	}
	return required(call[models.Book](ctx, c, http.MethodPatch, "/me/bookshelf/books/"+url.PathEscape(bookID), token, patch))
}

// DeleteBook removes a book from the bookshelf unlocked by token
func (c *Client) DeleteBook(ctx context.Context, token, bookID string) error {
	if token == "" {
		return ErrMissingToken
	}
	if bookID == "" {
		return fmt.Errorf("book ID is required")
	}
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, "/me/bookshelf/books/"+url.PathEscape(bookID), token, nil)
	return err
}

// call performs one request and unwraps the {data, error} envelope.
// A nil result with a nil error means the server answered without data.
func call[T any](ctx context.Context, c *Client, method, path, token string, payload interface{}) (*T, error) {
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := c.logger.With(map[string]interface{}{
		"method":     method,
		"endpoint":   path,
		"request_id": requestID,
	})

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug("Sending request", map[string]interface{}{"has_token": token != ""})
	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("Request failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(raw)) > c.maxBody {
		log.Error("Response too large", map[string]interface{}{
			"status": resp.StatusCode,
			"limit":  c.maxBody,
		})
		return nil, ErrResponseTooLarge
	}

	var envelope models.Envelope[T]
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return nil, statusError(log, resp.StatusCode, raw)
			}
			log.Error("Failed to decode response", map[string]interface{}{"error": err.Error()})
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if envelope.Error != nil {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
			Fields:     envelope.Error.Fields,
		}
		log.Warn("API reported an error", map[string]interface{}{
			"status": resp.StatusCode,
			"code":   apiErr.Code,
		})
		return nil, apiErr
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(log, resp.StatusCode, raw)
	}

	log.Debug("Request succeeded", map[string]interface{}{"status": resp.StatusCode})
	return envelope.Data, nil
}

// required turns a missing data member into an error for calls that must return one
func required[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("response carried no data")
	}
	return v, nil
}

func statusError(log *logger.Logger, status int, raw []byte) error {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	log.Error("Unexpected status code", map[string]interface{}{
		"status":   status,
		"response": string(raw),
	})
	return &APIError{StatusCode: status, Message: http.StatusText(status)}
}

func derefBooks(books *[]models.Book) []models.Book {
	if books == nil || *books == nil {
		return []models.Book{}
	}
	return *books
}
