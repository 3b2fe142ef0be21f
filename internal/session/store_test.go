package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/bookshelf/internal/api/bookshelf"
	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/tokenstore"
)

var errNetwork = errors.New("connection refused")

// fakeAPI serves one bookshelf per token
type fakeAPI struct {
	bookshelf.ClientInterface

	mu      sync.Mutex
	shelves map[string]*models.Bookshelf
	books   map[string][]models.Book
	fail    error
	gate    chan struct{}
	entered chan struct{}
	nextID  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		shelves: map[string]*models.Bookshelf{},
		books:   map[string][]models.Book{},
	}
}

func (f *fakeAPI) addShelf(token, name string, books ...models.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shelves[token] = &models.Bookshelf{PublicID: "pub-" + token, Name: name}
	f.books[token] = books
}

func (f *fakeAPI) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeAPI) GetOwnBookshelf(ctx context.Context, token string) (*models.Bookshelf, error) {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	shelf, ok := f.shelves[token]
	if !ok {
		return nil, &bookshelf.APIError{StatusCode: 404, Code: "NOT_FOUND", Message: "Bookshelf not found"}
	}
	out := *shelf
	return &out, nil
}

func (f *fakeAPI) ListOwnBooks(ctx context.Context, token string) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if _, ok := f.shelves[token]; !ok {
		return nil, &bookshelf.APIError{StatusCode: 404, Code: "NOT_FOUND", Message: "Bookshelf not found"}
	}
	return append([]models.Book(nil), f.books[token]...), nil
}

func (f *fakeAPI) CreateBook(ctx context.Context, token string, input models.BookInput) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.nextID++
	book := models.Book{ID: fmt.Sprintf("b%d", f.nextID), Title: input.Title, Author: input.Author, Status: input.Status}
	f.books[token] = append(f.books[token], book)
	return &book, nil
}

func (f *fakeAPI) UpdateBook(ctx context.Context, token, id string, patch models.BookPatch) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.books[token] {
		if b.ID == id {
			if patch.Title != nil {
				b.Title = *patch.Title
			}
			f.books[token][i] = b
			return &b, nil
		}
	}
	return nil, &bookshelf.APIError{StatusCode: 404, Code: "NOT_FOUND", Message: "Book not found"}
}

func (f *fakeAPI) DeleteBook(ctx context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	return nil
}

func (f *fakeAPI) UpdateBookshelf(ctx context.Context, token string, input models.BookshelfInput) (*models.Bookshelf, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shelf := f.shelves[token]
	shelf.Name = input.Name
	out := *shelf
	return &out, nil
}

func (f *fakeAPI) DeleteBookshelf(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	delete(f.shelves, token)
	return nil
}

// failingTokens fails Clear, to check the in-memory reset still happens
type failingTokens struct {
	*tokenstore.MemoryStore
}

func (failingTokens) Clear(context.Context) error { return errors.New("disk full") }

func book(id, title string) models.Book {
	return models.Book{ID: id, Title: title, Author: "Someone", Status: models.StatusWishlist}
}

func newOwner(t *testing.T) (*Store, *fakeAPI, *tokenstore.MemoryStore) {
	t.Helper()
	api := newFakeAPI()
	api.addShelf("abc123", "Mine", book("1", "The Hobbit"), book("2", "Dune"))
	tokens := tokenstore.NewMemoryStore()
	s := New(api, tokens, logger.Nop())
	require.NoError(t, s.SetEditToken(context.Background(), "abc123"))
	require.Equal(t, Owner, s.Snapshot().State)
	return s, api, tokens
}

func TestNewIsAnonymous(t *testing.T) {
	s := New(newFakeAPI(), tokenstore.NewMemoryStore(), logger.Nop())
	snap := s.Snapshot()
	assert.Equal(t, Anonymous, snap.State)
	assert.Empty(t, snap.Token)
	assert.NotNil(t, snap.Books)
	assert.False(t, s.CanEdit())
	assert.ErrorIs(t, s.Refresh(context.Background()), bookshelf.ErrMissingToken)
}

func TestSetEditTokenBecomesOwner(t *testing.T) {
	s, _, tokens := newOwner(t)

	snap := s.Snapshot()
	assert.Equal(t, "abc123", snap.Token)
	assert.Equal(t, "Mine", snap.Bookshelf.Name)
	assert.Len(t, snap.Books, 2)
	assert.NoError(t, snap.LastError)
	assert.True(t, s.CanEdit())

	stored, ok, err := tokens.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", stored)
}

func TestSetEditTokenRejectsBlank(t *testing.T) {
	s := New(newFakeAPI(), tokenstore.NewMemoryStore(), logger.Nop())
	assert.ErrorIs(t, s.SetEditToken(context.Background(), "   "), ErrEmptyToken)
	assert.Equal(t, Anonymous, s.Snapshot().State)
}

func TestClearBookshelfWhileOwner(t *testing.T) {
	s, _, tokens := newOwner(t)

	require.NoError(t, s.ClearBookshelf(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, Anonymous, snap.State)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.Bookshelf)
	assert.Empty(t, snap.Books)

	_, ok, err := tokens.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "stored token must be removed")
}

func TestClearBookshelfResetsEvenIfStorageFails(t *testing.T) {
	api := newFakeAPI()
	api.addShelf("abc123", "Mine")
	s := New(api, failingTokens{tokenstore.NewMemoryStore()}, logger.Nop())
	require.NoError(t, s.SetEditToken(context.Background(), "abc123"))

	err := s.ClearBookshelf(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Anonymous, s.Snapshot().State)
	assert.False(t, s.CanEdit())
}

func TestRefreshFailureKeepsToken(t *testing.T) {
	s, api, tokens := newOwner(t)
	api.setFail(errNetwork)

	err := s.Refresh(context.Background())
	require.ErrorIs(t, err, errNetwork)

	snap := s.Snapshot()
	assert.Equal(t, Owner, snap.State, "must not fall back to anonymous")
	assert.Equal(t, "abc123", snap.Token)
	assert.Len(t, snap.Books, 2, "stale cache is kept")
	assert.ErrorIs(t, snap.LastError, errNetwork)

	stored, ok, err := tokens.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", stored)

	api.setFail(nil)
	require.NoError(t, s.Refresh(context.Background()))
	assert.NoError(t, s.Snapshot().LastError)
}

func TestSetEditTokenFailureIsUnverified(t *testing.T) {
	api := newFakeAPI()
	api.setFail(errNetwork)
	tokens := tokenstore.NewMemoryStore()
	s := New(api, tokens, logger.Nop())

	err := s.SetEditToken(context.Background(), "abc123")
	require.ErrorIs(t, err, errNetwork)

	snap := s.Snapshot()
	assert.Equal(t, Unverified, snap.State)
	assert.Equal(t, "abc123", snap.Token)
	assert.True(t, snap.CanEdit())

	_, ok, _ := tokens.Get(context.Background())
	assert.True(t, ok)
}

func TestInvalidTokenReportsNotFound(t *testing.T) {
	s := New(newFakeAPI(), tokenstore.NewMemoryStore(), logger.Nop())
	err := s.SetEditToken(context.Background(), "wrong")
	assert.ErrorIs(t, err, bookshelf.ErrNotFound)
	assert.Equal(t, Unverified, s.Snapshot().State)
}

func TestRestore(t *testing.T) {
	api := newFakeAPI()
	api.addShelf("abc123", "Mine", book("1", "The Hobbit"))
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Set(context.Background(), "abc123"))

	s := New(api, tokens, logger.Nop())
	require.NoError(t, s.Restore(context.Background()))
	assert.Equal(t, Owner, s.Snapshot().State)
	assert.Len(t, s.Snapshot().Books, 1)
}

func TestRestoreWithoutToken(t *testing.T) {
	s := New(newFakeAPI(), tokenstore.NewMemoryStore(), logger.Nop())
	require.NoError(t, s.Restore(context.Background()))
	assert.Equal(t, Anonymous, s.Snapshot().State)
}

func TestSwitchingTokenDropsCache(t *testing.T) {
	s, api, _ := newOwner(t)
	api.addShelf("def456", "Other", book("9", "Emma"))

	require.NoError(t, s.SetEditToken(context.Background(), "def456"))
	snap := s.Snapshot()
	assert.Equal(t, "Other", snap.Bookshelf.Name)
	require.Len(t, snap.Books, 1)
	assert.Equal(t, "Emma", snap.Books[0].Title)
}

func TestLateRefreshAfterClearIsIgnored(t *testing.T) {
	s, api, _ := newOwner(t)

	api.mu.Lock()
	api.gate = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	api.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()

	<-api.entered
	require.NoError(t, s.ClearBookshelf(context.Background()))
	close(api.gate)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not return")
	}

	snap := s.Snapshot()
	assert.Equal(t, Anonymous, snap.State)
	assert.Empty(t, snap.Books)
	assert.Nil(t, snap.Bookshelf)
}

func TestSubscribe(t *testing.T) {
	api := newFakeAPI()
	api.addShelf("abc123", "Mine")
	s := New(api, tokenstore.NewMemoryStore(), logger.Nop())

	var (
		mu     sync.Mutex
		states []State
		last   uint64
	)
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		assert.Greater(t, snap.Version, last)
		last = snap.Version
		states = append(states, snap.State)
	})

	require.NoError(t, s.SetEditToken(context.Background(), "abc123"))
	require.NoError(t, s.ClearBookshelf(context.Background()))
	unsubscribe()
	unsubscribe()
	require.NoError(t, s.SetEditToken(context.Background(), "abc123"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Loading, Owner, Anonymous}, states)
}

func TestSubscribeOrderUnderConcurrentEdits(t *testing.T) {
	s, _, _ := newOwner(t)

	var (
		mu         sync.Mutex
		delivered  int
		inversions int
		last       uint64
	)
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		delivered++
		if snap.Version <= last {
			inversions++
		}
		last = snap.Version
	})
	defer unsubscribe()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddBook(context.Background(), models.BookInput{
				Title:  fmt.Sprintf("Book %d", i),
				Author: "Someone",
				Status: models.StatusWishlist,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, n, delivered)
	assert.Zero(t, inversions)
	assert.Equal(t, s.Snapshot().Version, last)
	assert.Len(t, s.Snapshot().Books, n+2)
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _, _ := newOwner(t)
	snap := s.Snapshot()
	snap.Books[0].Title = "changed"
	snap.Bookshelf.Name = "changed"

	again := s.Snapshot()
	assert.Equal(t, "The Hobbit", again.Books[0].Title)
	assert.Equal(t, "Mine", again.Bookshelf.Name)
}

func TestOwnerEditsUpdateCache(t *testing.T) {
	s, _, _ := newOwner(t)
	ctx := context.Background()

	added, err := s.AddBook(ctx, models.BookInput{Title: "Emma", Author: "Jane Austen", Status: models.StatusReading})
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Books, 3)

	title := "Emma (annotated)"
	_, err = s.UpdateBook(ctx, added.ID, models.BookPatch{Title: &title})
	require.NoError(t, err)
	books := s.Snapshot().Books
	assert.Equal(t, title, books[len(books)-1].Title)

	require.NoError(t, s.RemoveBook(ctx, "1"))
	for _, b := range s.Snapshot().Books {
		assert.NotEqual(t, "1", b.ID)
	}
	assert.Len(t, s.Snapshot().Books, 2)

	shelf, err := s.UpdateBookshelf(ctx, models.BookshelfInput{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", shelf.Name)
	assert.Equal(t, "Renamed", s.Snapshot().Bookshelf.Name)
}

func TestOwnerEditFailureKeepsState(t *testing.T) {
	s, api, _ := newOwner(t)
	before := s.Snapshot()
	api.setFail(errNetwork)

	_, err := s.AddBook(context.Background(), models.BookInput{Title: "x", Author: "y"})
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, before.Version, s.Snapshot().Version)
	assert.Len(t, s.Snapshot().Books, 2)
}

func TestOwnerEditsRequireToken(t *testing.T) {
	s := New(newFakeAPI(), tokenstore.NewMemoryStore(), logger.Nop())
	ctx := context.Background()

	_, err := s.AddBook(ctx, models.BookInput{})
	assert.ErrorIs(t, err, bookshelf.ErrMissingToken)
	_, err = s.UpdateBook(ctx, "1", models.BookPatch{})
	assert.ErrorIs(t, err, bookshelf.ErrMissingToken)
	assert.ErrorIs(t, s.RemoveBook(ctx, "1"), bookshelf.ErrMissingToken)
	_, err = s.UpdateBookshelf(ctx, models.BookshelfInput{Name: "x"})
	assert.ErrorIs(t, err, bookshelf.ErrMissingToken)
	assert.ErrorIs(t, s.DeleteBookshelf(ctx), bookshelf.ErrMissingToken)
}

func TestDeleteBookshelfClearsSession(t *testing.T) {
	s, _, tokens := newOwner(t)

	require.NoError(t, s.DeleteBookshelf(context.Background()))
	assert.Equal(t, Anonymous, s.Snapshot().State)
	_, ok, _ := tokens.Get(context.Background())
	assert.False(t, ok)
}

func TestDeleteBookshelfFailureKeepsSession(t *testing.T) {
	s, api, _ := newOwner(t)
	api.setFail(errNetwork)

	assert.ErrorIs(t, s.DeleteBookshelf(context.Background()), errNetwork)
	assert.Equal(t, Owner, s.Snapshot().State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "owner", Owner.String())
	assert.Equal(t, "unverified", Unverified.String())
	assert.Equal(t, "State(9)", State(9).String())
}
