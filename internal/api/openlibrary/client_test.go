package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/metadata"
	"github.com/drallgood/bookshelf/internal/util"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, util.NewRateLimiter(time.Millisecond, 100, logger.Nop()), logger.Nop())
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "the hobbit", r.URL.Query().Get("title"))
		assert.Equal(t, "tolkien", r.URL.Query().Get("author"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"numFound": 3,
			"docs": [
				{
					"key": "/works/OL262758W",
					"title": "The Hobbit",
					"author_name": ["J.R.R. Tolkien"],
					"number_of_pages_median": 310,
					"cover_i": 14627509,
					"publisher": ["Allen & Unwin", "Houghton Mifflin"],
					"isbn": ["0547928227", "9780547928227"],
					"language": ["eng"]
				},
				{"key": "/works/OL2W", "title": ""},
				{"key": "/works/OL3W", "title": "The Hobbit, or There and Back Again", "language": ["ger"]},
				{"key": "/works/OL4W", "title": "Over the limit"}
			]
		}`))
	})

	got := client.Search(context.Background(), metadata.Query{Title: " the hobbit ", Author: "tolkien", Limit: 2})
	require.Len(t, got, 2)

	assert.Equal(t, metadata.Suggestion{
		Key:       "/works/OL262758W",
		Title:     "The Hobbit",
		Author:    "J.R.R. Tolkien",
		Pages:     310,
		CoverURL:  "https://covers.openlibrary.org/b/id/14627509-L.jpg",
		Publisher: "Allen & Unwin",
		ISBN13:    "9780547928227",
		Language:  "EN",
	}, got[0])
	assert.Equal(t, "DE", got[1].Language)
	assert.Empty(t, got[1].CoverURL)
}

func TestSearchEmptyQuerySkipsRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	assert.Nil(t, client.Search(context.Background(), metadata.Query{Title: "   "}))
}

func TestSearchFailuresDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"docs": [`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			assert.Nil(t, client.Search(context.Background(), metadata.Query{Title: "x"}))
		})
	}
}

func TestSearchRateLimitedSlowsDown(t *testing.T) {
	limiter := util.NewRateLimiter(time.Millisecond, 100, logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, limiter, logger.Nop())
	assert.Nil(t, client.Search(context.Background(), metadata.Query{Title: "x"}))
	assert.Greater(t, limiter.GetRate(), time.Millisecond)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"description": " A hobbit. "}`, "A hobbit."},
		{"typed", `{"description": {"type": "/type/text", "value": "A hobbit."}}`, "A hobbit."},
		{"missing", `{"title": "The Hobbit"}`, ""},
		{"unexpected", `{"description": 42}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/works/OL262758W.json", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})
			assert.Equal(t, tt.want, client.Describe(context.Background(), "/works/OL262758W"))
		})
	}
}

func TestDescribeBareKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works/OL1W.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"description": "ok"}`))
	})
	assert.Equal(t, "ok", client.Describe(context.Background(), "OL1W"))
	assert.Empty(t, client.Describe(context.Background(), "  "))
}

func TestDescribeNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	assert.Empty(t, client.Describe(context.Background(), "/works/OL1W"))
}
