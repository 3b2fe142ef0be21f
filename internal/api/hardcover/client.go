// Package hardcover searches the Hardcover GraphQL catalogue for book metadata.
package hardcover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hasura/go-graphql-client"

	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/metadata"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/util"
)

const (
	// DefaultBaseURL is the default base URL for the Hardcover API
	DefaultBaseURL = "https://api.hardcover.app/v1/graphql"
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit is the default minimum time between requests
	DefaultRateLimit = 1500 * time.Millisecond
	// DefaultBurst is the default burst size for rate limiting
	DefaultBurst = 2
)

// ErrMissingToken is returned by NewClient when no API token is configured
var ErrMissingToken = errors.New("hardcover API token is required")

const searchByTitle = `
query SearchBooks($title: String!, $limit: Int!) {
  books(
    where: { title: { _ilike: $title } }
    order_by: { users_count: desc }
    limit: $limit
  ) {
    id
    title
    pages
    release_date
    image { url }
    contributions(limit: 1) { author { name } }
    default_physical_edition {
      isbn_13
      publisher { name }
      language { code2 }
    }
  }
}`

const searchByTitleAndAuthor = `
query SearchBooksByAuthor($title: String!, $author: String!, $limit: Int!) {
  books(
    where: {
      title: { _ilike: $title }
      contributions: { author: { name: { _ilike: $author } } }
    }
    order_by: { users_count: desc }
    limit: $limit
  ) {
    id
    title
    pages
    release_date
    image { url }
    contributions(limit: 1) { author { name } }
    default_physical_edition {
      isbn_13
      publisher { name }
      language { code2 }
    }
  }
}`

const describeBook = `
query DescribeBook($id: Int!) {
  books_by_pk(id: $id) {
    description
  }
}`

// headerAddingTransport is an http.RoundTripper that authenticates requests
// and reports 429 responses to the rate limiter.
type headerAddingTransport struct {
	token   string
	limiter *util.RateLimiter
	rt      http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface.
func (t *headerAddingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(t.token, "Bearer "))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.rt.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		t.limiter.OnRateLimit(util.ParseRetryAfter(resp.Header))
	}
	return resp, err
}

// Client is a Hardcover metadata provider
type Client struct {
	gqlClient   *graphql.Client
	rateLimiter *util.RateLimiter
	logger      *logger.Logger
}

var _ metadata.Provider = (*Client)(nil)

// NewClient creates a new Hardcover client
func NewClient(baseURL, token string, timeout time.Duration, limiter *util.RateLimiter, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Get()
	}
	log = log.With(map[string]interface{}{"component": "hardcover_client"})
	if limiter == nil {
		limiter = util.NewRateLimiter(DefaultRateLimit, DefaultBurst, log)
	}

	authClient := &http.Client{
		Timeout: timeout,
		Transport: &headerAddingTransport{
			token:   token,
			limiter: limiter,
			rt:      http.DefaultTransport,
		},
	}

	log.Debug("Created new Hardcover client", map[string]interface{}{
		"base_url": baseURL,
		"timeout":  timeout.String(),
	})

	return &Client{
		gqlClient:   graphql.NewClient(baseURL, authClient),
		rateLimiter: limiter,
		logger:      log,
	}, nil
}

// Name implements metadata.Provider
func (c *Client) Name() string { return "hardcover" }

type bookNode struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Pages       *int   `json:"pages"`
	ReleaseDate string `json:"release_date"`
	Image       *struct {
		URL string `json:"url"`
	} `json:"image"`
	Contributions []struct {
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"contributions"`
	Edition *struct {
		ISBN13    string `json:"isbn_13"`
		Publisher *struct {
			Name string `json:"name"`
		} `json:"publisher"`
		Language *struct {
			Code2 string `json:"code2"`
		} `json:"language"`
	} `json:"default_physical_edition"`
}

func (b bookNode) suggestion() metadata.Suggestion {
	s := metadata.Suggestion{
		Key:           strconv.Itoa(b.ID),
		Title:         b.Title,
		PublishedDate: b.ReleaseDate,
	}
	if b.Pages != nil {
		s.Pages = *b.Pages
	}
	if b.Image != nil {
		s.CoverURL = b.Image.URL
	}
	if len(b.Contributions) > 0 {
		s.Author = b.Contributions[0].Author.Name
	}
	if e := b.Edition; e != nil {
		s.ISBN13 = e.ISBN13
		if e.Publisher != nil {
			s.Publisher = e.Publisher.Name
		}
		if e.Language != nil && e.Language.Code2 != "" {
			s.Language = string(models.LanguageFromISO639(strings.ToLower(e.Language.Code2)))
		}
	}
	return s
}

// Search implements metadata.Provider
func (c *Client) Search(ctx context.Context, q metadata.Query) []metadata.Suggestion {
	q = q.Normalized()
	if q.Title == "" {
		return nil
	}

	query := searchByTitle
	vars := map[string]interface{}{
		"title": "%" + q.Title + "%",
		"limit": q.Limit,
	}
	if q.Author != "" {
		query = searchByTitleAndAuthor
		vars["author"] = "%" + q.Author + "%"
	}

	var result struct {
		Books []bookNode `json:"books"`
	}
	if err := c.exec(ctx, query, vars, &result); err != nil {
		c.logger.Warn("Hardcover search failed", map[string]interface{}{
			"title":  q.Title,
			"author": q.Author,
			"error":  err.Error(),
		})
		return nil
	}

	out := make([]metadata.Suggestion, 0, len(result.Books))
	for _, b := range result.Books {
		out = append(out, b.suggestion())
	}
	return out
}

// Describe implements metadata.Provider. key is a Hardcover book id.
func (c *Client) Describe(ctx context.Context, key string) string {
	id, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return ""
	}

	var result struct {
		Book *struct {
			Description string `json:"description"`
		} `json:"books_by_pk"`
	}
	if err := c.exec(ctx, describeBook, map[string]interface{}{"id": id}, &result); err != nil {
		c.logger.Warn("Hardcover book lookup failed", map[string]interface{}{
			"book_id": id,
			"error":   err.Error(),
		})
		return ""
	}
	if result.Book == nil {
		return ""
	}
	return strings.TrimSpace(result.Book.Description)
}

func (c *Client) exec(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	raw, err := c.gqlClient.ExecRaw(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
