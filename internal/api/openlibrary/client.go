// Package openlibrary searches the Open Library catalogue for book metadata.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/metadata"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/util"
)

const (
	// DefaultBaseURL is the public Open Library endpoint
	DefaultBaseURL = "https://openlibrary.org"
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	coverURLFormat = "https://covers.openlibrary.org/b/id/%d-L.jpg"
	searchFields   = "key,title,author_name,number_of_pages_median,cover_i,publisher,isbn,language"
)

// Client is an Open Library metadata provider
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *util.RateLimiter
	logger      *logger.Logger
}

var _ metadata.Provider = (*Client)(nil)

// NewClient creates a new Open Library client. A nil limiter uses the default rate.
func NewClient(baseURL string, timeout time.Duration, limiter *util.RateLimiter, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Get()
	}
	log = log.With(map[string]interface{}{"component": "openlibrary_client"})
	if limiter == nil {
		limiter = util.NewRateLimiter(util.DefaultRate, util.DefaultBurst, log)
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		logger:      log,
	}
}

// Name implements metadata.Provider
func (c *Client) Name() string { return "openlibrary" }

type searchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

type searchDoc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	Pages      int      `json:"number_of_pages_median"`
	CoverID    int      `json:"cover_i"`
	Publisher  []string `json:"publisher"`
	ISBN       []string `json:"isbn"`
	Language   []string `json:"language"`
}

// Search implements metadata.Provider
func (c *Client) Search(ctx context.Context, q metadata.Query) []metadata.Suggestion {
	q = q.Normalized()
	if q.Empty() {
		return nil
	}

	params := url.Values{}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	if q.Author != "" {
		params.Set("author", q.Author)
	}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("fields", searchFields)

	var resp searchResponse
	if err := c.get(ctx, "/search.json", params, &resp); err != nil {
		c.logger.Warn("Open Library search failed", map[string]interface{}{
			"title":  q.Title,
			"author": q.Author,
			"error":  err.Error(),
		})
		return nil
	}

	out := make([]metadata.Suggestion, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		if doc.Title == "" {
			continue
		}
		out = append(out, doc.suggestion())
		if len(out) == q.Limit {
			break
		}
	}

	c.logger.Debug("Open Library search completed", map[string]interface{}{
		"title":     q.Title,
		"author":    q.Author,
		"num_found": resp.NumFound,
		"returned":  len(out),
	})
	return out
}

func (d searchDoc) suggestion() metadata.Suggestion {
	s := metadata.Suggestion{
		Key:   d.Key,
		Title: d.Title,
		Pages: d.Pages,
	}
	if len(d.AuthorName) > 0 {
		s.Author = strings.Join(d.AuthorName, ", ")
	}
	if d.CoverID > 0 {
		s.CoverURL = fmt.Sprintf(coverURLFormat, d.CoverID)
	}
	if len(d.Publisher) > 0 {
		s.Publisher = d.Publisher[0]
	}
	for _, isbn := range d.ISBN {
		if isISBN13(isbn) {
			s.ISBN13 = isbn
			break
		}
	}
	if len(d.Language) > 0 {
		s.Language = string(models.LanguageFromISO639(d.Language[0]))
	}
	return s
}

func isISBN13(s string) bool {
	if len(s) != 13 || !(strings.HasPrefix(s, "978") || strings.HasPrefix(s, "979")) {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type workResponse struct {
	Description json.RawMessage `json:"description"`
}

// Describe implements metadata.Provider. key is a work key such as "/works/OL45804W".
func (c *Client) Describe(ctx context.Context, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if !strings.HasPrefix(key, "/") {
		key = "/works/" + key
	}

	var work workResponse
	if err := c.get(ctx, key+".json", nil, &work); err != nil {
		c.logger.Warn("Open Library work lookup failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return ""
	}
	return parseDescription(work.Description)
}

// parseDescription accepts either a plain string or a {"type", "value"} object
func parseDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &typed); err == nil {
		return strings.TrimSpace(typed.Value)
	}
	return ""
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := c.rateLimiter.OnRateLimit(util.ParseRetryAfter(resp.Header))
		return fmt.Errorf("rate limited, retry after %s", wait)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
