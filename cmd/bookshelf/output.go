package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/drallgood/bookshelf/internal/api/bookshelf"
	"github.com/drallgood/bookshelf/internal/metadata"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/session"
	"github.com/drallgood/bookshelf/internal/transfer"
	"github.com/drallgood/bookshelf/internal/validation"
	"github.com/drallgood/bookshelf/internal/view"
)

type booksJSON struct {
	Books    []models.Book `json:"books"`
	Criteria view.Criteria `json:"criteria"`
	Summary  view.Summary  `json:"summary"`
}

type sessionJSON struct {
	State     string            `json:"state"`
	Bookshelf *models.Bookshelf `json:"bookshelf"`
	Books     int               `json:"books"`
	LastError string            `json:"lastError,omitempty"`
}

func snapshotJSON(snap session.Snapshot) sessionJSON {
	out := sessionJSON{
		State:     snap.State.String(),
		Bookshelf: snap.Bookshelf,
		Books:     len(snap.Books),
	}
	if snap.LastError != nil {
		out.LastError = snap.LastError.Error()
	}
	return out
}

type importResultJSON struct {
	Created int               `json:"created"`
	Skipped int               `json:"skipped"`
	Failed  map[string]string `json:"failed,omitempty"`
}

func importJSON(res transfer.Result) importResultJSON {
	out := importResultJSON{Created: len(res.Created), Skipped: res.Skipped}
	if len(res.Failed) > 0 {
		out.Failed = make(map[string]string, len(res.Failed))
		for _, f := range res.Failed {
			out.Failed[f.Input.Title] = f.Err.Error()
		}
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func printStatus(w io.Writer, snap session.Snapshot) {
	fmt.Fprintf(w, "Session: %s\n", snap.State)
	if snap.Bookshelf != nil {
		fmt.Fprintf(w, "Bookshelf: %s (public ID %s)\n", snap.Bookshelf.Name, snap.Bookshelf.PublicID)
		sum := view.Summarize(snap.Books)
		fmt.Fprintf(w, "Books: %d (%d wishlist, %d reading, %d completed)\n", sum.Total,
			sum.ByStatus[models.StatusWishlist], sum.ByStatus[models.StatusReading], sum.ByStatus[models.StatusCompleted])
		if sum.Rated > 0 {
			fmt.Fprintf(w, "Average rating: %.1f over %d rated\n", sum.AverageRating, sum.Rated)
		}
	}
	if snap.LastError != nil {
		fmt.Fprintf(w, "Last error: %v\n", snap.LastError)
	}
}

func printBookTable(w io.Writer, books []models.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS\tGENRE\tRATING\tPROGRESS\tFINISHED\t")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			b.ID,
			view.FavoriteMark(b), view.Truncate(b.Title, 40),
			view.Truncate(b.Author, 30),
			view.StatusLabel(b.Status),
			view.GenreLabel(b.Genre),
			view.FormatRating(b.Rating),
			view.FormatProgress(b.Progress),
			view.FormatDate(b.FinishedAt),
		)
	}
	tw.Flush()
}

func printSuggestions(w io.Writer, found []metadata.Suggestion) {
	if len(found) == 0 {
		fmt.Fprintln(w, "No matches")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTITLE\tAUTHOR\tPAGES\tISBN\t")
	for _, s := range found {
		pages := view.Placeholder
		if s.Pages > 0 {
			pages = fmt.Sprint(s.Pages)
		}
		isbn := s.ISBN13
		if isbn == "" {
			isbn = view.Placeholder
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", s.Key, view.Truncate(s.Title, 40), view.Truncate(s.Author, 30), pages, isbn)
	}
	tw.Flush()
}

// printError writes err for a person: field errors one per line, everything
// else as a single notification line
func printError(w io.Writer, err error) {
	if fe, ok := validation.AsFieldErrors(err); ok {
		fmt.Fprintln(w, "Please fix the following:")
		printFields(w, fe)
		return
	}
	var importErr *transfer.ImportError
	if errors.As(err, &importErr) {
		fmt.Fprintln(w, "The import file was rejected; nothing was imported:")
		for _, p := range importErr.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
		return
	}
	if fields := bookshelf.FieldErrors(err); len(fields) > 0 {
		fmt.Fprintln(w, "The server rejected the input:")
		printFields(w, fields)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func printFields(w io.Writer, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, fields[k])
	}
}
