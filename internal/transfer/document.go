// Package transfer moves bookshelf contents to and from a JSON document for
// backup and transfer between bookshelves.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/validation"
)

// Version is the document format version written and accepted
const Version = 1

// MaxDocumentSize bounds how much input Parse will read
const MaxDocumentSize = 16 << 20

// Document is the export file format
type Document struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Bookshelf  ShelfInfo          `json:"bookshelf"`
	Books      []models.BookInput `json:"books"`
}

// ShelfInfo is the exported description of the bookshelf itself
type ShelfInfo struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Export builds a document from a bookshelf and its books. Server assigned
// identifiers and timestamps are dropped.
func Export(shelf *models.Bookshelf, books []models.Book, now time.Time) *Document {
	doc := &Document{
		Version:    Version,
		ExportedAt: now.UTC().Truncate(time.Second),
		Books:      make([]models.BookInput, 0, len(books)),
	}
	if shelf != nil {
		doc.Bookshelf = ShelfInfo{Name: shelf.Name, Description: shelf.Description}
	}
	for _, b := range books {
		doc.Books = append(doc.Books, b.Input())
	}
	return doc
}

// Write encodes doc as indented JSON
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// Problem is one reason an import document was rejected. Index is the
// position in books, or -1 for the document as a whole.
type Problem struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	switch {
	case p.Index < 0 && p.Field == "":
		return p.Message
	case p.Index < 0:
		return p.Field + " " + p.Message
	case p.Field == "":
		return fmt.Sprintf("books[%d]: %s", p.Index, p.Message)
	default:
		return fmt.Sprintf("books[%d].%s %s", p.Index, p.Field, p.Message)
	}
}

// ImportError lists every problem found in a document
type ImportError struct {
	Problems []Problem
}

func (e *ImportError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return "invalid import document: " + strings.Join(parts, "; ")
}

func documentError(format string, args ...interface{}) *ImportError {
	return &ImportError{Problems: []Problem{{Index: -1, Message: fmt.Sprintf(format, args...)}}}
}

// rawDocument distinguishes a missing books key from an empty list
type rawDocument struct {
	Version    *int                `json:"version"`
	ExportedAt *time.Time          `json:"exportedAt"`
	Bookshelf  *ShelfInfo          `json:"bookshelf"`
	Books      *[]models.BookInput `json:"books"`
}

// Parse decodes and validates a document. Unknown fields, trailing data and
// unsupported versions are rejected. Every invalid book is reported in one
// *ImportError; on error nothing should be applied.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read import document: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, documentError("document is larger than %d bytes", MaxDocumentSize)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, documentError("document is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw rawDocument
	if err := dec.Decode(&raw); err != nil {
		return nil, documentError("malformed JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, documentError("unexpected data after the document")
	}

	var problems []Problem
	if raw.Version == nil {
		problems = append(problems, Problem{Index: -1, Field: "version", Message: "is required"})
	} else if *raw.Version != Version {
		problems = append(problems, Problem{Index: -1, Field: "version", Message: fmt.Sprintf("%d is not supported", *raw.Version)})
	}
	if raw.Books == nil {
		problems = append(problems, Problem{Index: -1, Field: "books", Message: "is required"})
	}
	if len(problems) > 0 {
		return nil, &ImportError{Problems: problems}
	}

	doc := &Document{Version: *raw.Version, Books: make([]models.BookInput, 0, len(*raw.Books))}
	if raw.ExportedAt != nil {
		doc.ExportedAt = *raw.ExportedAt
	}
	if raw.Bookshelf != nil {
		doc.Bookshelf = *raw.Bookshelf
	}

	for i, b := range *raw.Books {
		b = normalize(b)
		if err := validation.ValidateInput(b); err != nil {
			problems = append(problems, bookProblems(i, err)...)
			continue
		}
		doc.Books = append(doc.Books, b)
	}
	if len(problems) > 0 {
		return nil, &ImportError{Problems: problems}
	}
	return doc, nil
}

func normalize(b models.BookInput) models.BookInput {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	if b.ISBN13 != nil {
		isbn := validation.NormalizeISBN(*b.ISBN13)
		if isbn == "" {
			b.ISBN13 = nil
		} else {
			b.ISBN13 = &isbn
		}
	}
	if b.Status == "" {
		b.Status = models.StatusWishlist
	}
	return b
}

func bookProblems(index int, err error) []Problem {
	fe, ok := validation.AsFieldErrors(err)
	if !ok {
		return []Problem{{Index: index, Message: err.Error()}}
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]Problem, 0, len(fields))
	for _, f := range fields {
		out = append(out, Problem{Index: index, Field: f, Message: fe[f]})
	}
	return out
}
