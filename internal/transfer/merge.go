package transfer

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/validation"
)

// DefaultParallelism is how many books Apply creates at once
const DefaultParallelism = 4

// MergePlan splits a document into books to create and books already present
type MergePlan struct {
	Create  []models.BookInput
	Skipped []models.BookInput
}

type identity struct {
	isbn        map[string]bool
	titleAuthor map[string]bool
	// titleAuthorNoISBN holds keys of books without an ISBN
	titleAuthorNoISBN map[string]bool
}

func newIdentity() *identity {
	return &identity{
		isbn:              map[string]bool{},
		titleAuthor:       map[string]bool{},
		titleAuthorNoISBN: map[string]bool{},
	}
}

func titleAuthorKey(title, author string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " ")) + "\x00" +
		strings.ToLower(strings.Join(strings.Fields(author), " "))
}

func isbnOf(p *string) string {
	if p == nil {
		return ""
	}
	return validation.NormalizeISBN(*p)
}

// seen reports whether a book with this identity was already added. Two
// books match on ISBN-13 when both carry one, otherwise on title and author.
func (id *identity) seen(title, author string, isbn *string) bool {
	key := titleAuthorKey(title, author)
	if n := isbnOf(isbn); n != "" {
		return id.isbn[n] || id.titleAuthorNoISBN[key]
	}
	return id.titleAuthor[key]
}

func (id *identity) add(title, author string, isbn *string) {
	key := titleAuthorKey(title, author)
	id.titleAuthor[key] = true
	if n := isbnOf(isbn); n != "" {
		id.isbn[n] = true
	} else {
		id.titleAuthorNoISBN[key] = true
	}
}

// Plan decides which books of doc to create on a bookshelf that already
// holds existing. Duplicates inside doc are skipped too.
func Plan(doc *Document, existing []models.Book) *MergePlan {
	id := newIdentity()
	for _, b := range existing {
		id.add(b.Title, b.Author, b.ISBN13)
	}

	plan := &MergePlan{}
	for _, b := range doc.Books {
		if id.seen(b.Title, b.Author, b.ISBN13) {
			plan.Skipped = append(plan.Skipped, b)
			continue
		}
		id.add(b.Title, b.Author, b.ISBN13)
		plan.Create = append(plan.Create, b)
	}
	return plan
}

// CreateFunc creates one book. session.Store.AddBook satisfies it.
type CreateFunc func(ctx context.Context, input models.BookInput) (*models.Book, error)

// Failure is a book Apply could not create
type Failure struct {
	Input models.BookInput
	Err   error
}

// Result summarises an Apply run
type Result struct {
	Created []models.Book
	Skipped int
	Failed  []Failure
}

// Apply creates the planned books with bounded parallelism. A failed book
// does not stop the others; created books keep the document order.
func Apply(ctx context.Context, create CreateFunc, plan *MergePlan, parallelism int, log *logger.Logger) Result {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	if log == nil {
		log = logger.Nop()
	}

	created := make([]*models.Book, len(plan.Create))
	errs := make([]error, len(plan.Create))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, input := range plan.Create {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			book, err := create(ctx, input)
			created[i], errs[i] = book, err
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Skipped: len(plan.Skipped)}
	for i, input := range plan.Create {
		if errs[i] != nil {
			log.Warn("Failed to import book", map[string]interface{}{
				"title": input.Title,
				"error": errs[i].Error(),
			})
			res.Failed = append(res.Failed, Failure{Input: input, Err: errs[i]})
			continue
		}
		if created[i] != nil {
			res.Created = append(res.Created, *created[i])
		}
	}

	log.Info("Import finished", map[string]interface{}{
		"created": len(res.Created),
		"skipped": res.Skipped,
		"failed":  len(res.Failed),
	})
	return res
}
