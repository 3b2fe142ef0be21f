package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/drallgood/bookshelf/internal/api/bookshelf"
	"github.com/drallgood/bookshelf/internal/metadata"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/server"
	"github.com/drallgood/bookshelf/internal/transfer"
	"github.com/drallgood/bookshelf/internal/validation"
	"github.com/drallgood/bookshelf/internal/view"
)

func (s *state) createShelf(c *cli.Context) error {
	input, err := validation.BookshelfForm{
		Name:        c.String("name"),
		Description: c.String("description"),
	}.Normalize()
	if err != nil {
		return err
	}

	created, err := s.api.CreateBookshelf(c.Context, input)
	if err != nil {
		return fmt.Errorf("failed to create bookshelf: %w", err)
	}

	if c.Bool("save") {
		sess, err := s.openSession()
		if err != nil {
			return err
		}
		if err := sess.SetEditToken(c.Context, created.EditToken); err != nil {
			s.log.Warn("Bookshelf created but could not be opened", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if s.json {
		return writeJSON(s.out, created)
	}
	fmt.Fprintf(s.out, "Created %q (public ID %s)\n", created.Name, created.PublicID)
	fmt.Fprintf(s.out, "Edit token: %s\n", created.EditToken)
	fmt.Fprintln(s.out, "Keep this token safe. It cannot be retrieved again.")
	if c.Bool("save") {
		fmt.Fprintln(s.out, "The token was saved; this bookshelf is open for editing.")
	}
	return nil
}

func (s *state) login(c *cli.Context) error {
	token := strings.TrimSpace(c.String("token"))
	if token == "" {
		var err error
		if token, err = s.readSecret("Edit token: "); err != nil {
			return err
		}
	}

	sess, err := s.openSession()
	if err != nil {
		return err
	}
	if err := sess.SetEditToken(c.Context, token); err != nil {
		if bookshelf.IsAccessError(err) {
			if clearErr := sess.ClearBookshelf(c.Context); clearErr != nil {
				s.log.Warn("Failed to clear rejected token", map[string]interface{}{
					"error": clearErr.Error(),
				})
			}
			return fmt.Errorf("the edit token was not accepted: %w", err)
		}
		return err
	}

	snap := sess.Snapshot()
	if s.json {
		return writeJSON(s.out, snapshotJSON(snap))
	}
	fmt.Fprintf(s.out, "Opened %q with %d books\n", snap.Bookshelf.Name, len(snap.Books))
	return nil
}

func (s *state) logout(c *cli.Context) error {
	sess, err := s.openSession()
	if err != nil {
		return err
	}
	if err := sess.ClearBookshelf(c.Context); err != nil {
		return err
	}
	if !s.json {
		fmt.Fprintln(s.out, "Logged out")
	}
	return nil
}

func (s *state) status(c *cli.Context) error {
	sess, err := s.openSession()
	if err != nil {
		return err
	}
	restoreErr := sess.Restore(c.Context)
	snap := sess.Snapshot()

	if s.json {
		if err := writeJSON(s.out, snapshotJSON(snap)); err != nil {
			return err
		}
		return restoreErr
	}
	printStatus(s.out, snap)
	return restoreErr
}

func (s *state) listBooks(c *cli.Context) error {
	criteria, err := criteriaFromFlags(c)
	if err != nil {
		return err
	}
	sess, err := s.restore(c.Context, true)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	return s.printBooks(snap.Books, criteria)
}

func (s *state) showShelf(c *cli.Context) error {
	publicID := c.Args().First()
	if publicID == "" {
		return errors.New("a public ID is required")
	}
	criteria, err := criteriaFromFlags(c)
	if err != nil {
		return err
	}

	var (
		shelf *models.Bookshelf
		books []models.Book
	)
	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		var err error
		shelf, err = s.api.GetBookshelf(ctx, publicID)
		return err
	})
	g.Go(func() error {
		var err error
		books, err = s.api.ListBooks(ctx, publicID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load bookshelf %s: %w", publicID, err)
	}

	if !s.json {
		fmt.Fprintf(s.out, "%s\n\n", shelf.Name)
	}
	return s.printBooks(books, criteria)
}

func (s *state) printBooks(books []models.Book, criteria view.Criteria) error {
	derived := view.Derive(books, criteria)
	if s.json {
		return writeJSON(s.out, booksJSON{
			Books:    derived,
			Criteria: criteria,
			Summary:  view.Summarize(books),
		})
	}
	printBookTable(s.out, derived)
	if criteria.HasFilters() {
		fmt.Fprintf(s.out, "\n%d of %d books\n", len(derived), len(books))
	}
	return nil
}

func (s *state) addBook(c *cli.Context) error {
	form := bookFormFromFlags(c)

	if c.Bool("lookup") {
		q := metadata.Query{Title: form.Title, Author: form.Author, Limit: 1}
		if !q.Empty() {
			p := s.provider()
			if found := p.Search(c.Context, q); len(found) > 0 {
				metadata.ApplySuggestion(&form, found[0])
				if strings.TrimSpace(form.Description) == "" && found[0].Key != "" {
					metadata.ApplyDescription(&form, p.Describe(c.Context, found[0].Key))
				}
			}
		}
	}

	input, err := form.Normalize()
	if err != nil {
		return err
	}
	sess, err := s.restore(c.Context, false)
	if err != nil {
		return err
	}
	book, err := sess.AddBook(c.Context, input)
	if err != nil {
		return fmt.Errorf("failed to add book: %w", err)
	}

	if s.json {
		return writeJSON(s.out, book)
	}
	fmt.Fprintf(s.out, "Added %q (%s)\n", book.Title, book.ID)
	return nil
}

func (s *state) updateBook(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("a book ID is required")
	}
	patch, err := patchFormFromFlags(c).Normalize()
	if err != nil {
		return err
	}
	sess, err := s.restore(c.Context, false)
	if err != nil {
		return err
	}
	book, err := sess.UpdateBook(c.Context, id, patch)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	if s.json {
		return writeJSON(s.out, book)
	}
	fmt.Fprintf(s.out, "Updated %q\n", book.Title)
	return nil
}

func (s *state) removeBook(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("a book ID is required")
	}
	sess, err := s.restore(c.Context, false)
	if err != nil {
		return err
	}
	if err := sess.RemoveBook(c.Context, id); err != nil {
		return fmt.Errorf("failed to remove book: %w", err)
	}
	if !s.json {
		fmt.Fprintf(s.out, "Removed %s\n", id)
	}
	return nil
}

func (s *state) renameShelf(c *cli.Context) error {
	if !c.IsSet("name") && !c.IsSet("description") {
		return errors.New("nothing to change: pass --name or --description")
	}
	sess, err := s.restore(c.Context, false)
	if err != nil {
		return err
	}
	form := validation.BookshelfForm{
		Name:        c.String("name"),
		Description: c.String("description"),
	}
	if current := sess.Snapshot().Bookshelf; current != nil {
		if !c.IsSet("name") {
			form.Name = current.Name
		}
		if !c.IsSet("description") && current.Description != nil {
			form.Description = *current.Description
		}
	}
	input, err := form.Normalize()
	if err != nil {
		return err
	}
	shelf, err := sess.UpdateBookshelf(c.Context, input)
	if err != nil {
		return fmt.Errorf("failed to rename bookshelf: %w", err)
	}
	if s.json {
		return writeJSON(s.out, shelf)
	}
	fmt.Fprintf(s.out, "Renamed to %q\n", shelf.Name)
	return nil
}

func (s *state) deleteShelf(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("refusing to delete without --yes")
	}
	sess, err := s.restore(c.Context, false)
	if err != nil {
		return err
	}
	if err := sess.DeleteBookshelf(c.Context); err != nil {
		return fmt.Errorf("failed to delete bookshelf: %w", err)
	}
	if !s.json {
		fmt.Fprintln(s.out, "Bookshelf deleted")
	}
	return nil
}

func (s *state) exportShelf(c *cli.Context) error {
	sess, err := s.restore(c.Context, true)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	doc := transfer.Export(snap.Bookshelf, snap.Books, time.Now())

	path := c.String("output")
	if path == "" {
		return transfer.Write(s.out, doc)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := transfer.Write(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if !s.json {
		fmt.Fprintf(s.out, "Exported %d books to %s\n", len(doc.Books), path)
	}
	return nil
}

func (s *state) importShelf(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("an import file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := transfer.Parse(f)
	if err != nil {
		return err
	}
	sess, err := s.restore(c.Context, true)
	if err != nil {
		return err
	}

	plan := transfer.Plan(doc, sess.Snapshot().Books)
	res := transfer.Apply(c.Context, sess.AddBook, plan, c.Int("parallel"), s.log)

	if s.json {
		if err := writeJSON(s.out, importJSON(res)); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(s.out, "Imported %d books, skipped %d already present", len(res.Created), res.Skipped)
		if len(res.Failed) > 0 {
			fmt.Fprintf(s.out, ", %d failed", len(res.Failed))
		}
		fmt.Fprintln(s.out)
		for _, failure := range res.Failed {
			fmt.Fprintf(s.out, "  %s: %v\n", failure.Input.Title, failure.Err)
		}
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d books could not be imported", len(res.Failed), len(plan.Create))
	}
	return nil
}

func (s *state) search(c *cli.Context) error {
	q := metadata.Query{Title: c.String("title"), Author: c.String("author"), Limit: c.Int("limit")}
	if q.Empty() {
		return errors.New("give --title or --author")
	}
	found := s.provider().Search(c.Context, q)
	if s.json {
		if found == nil {
			found = []metadata.Suggestion{}
		}
		return writeJSON(s.out, found)
	}
	printSuggestions(s.out, found)
	return nil
}

func (s *state) describe(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return errors.New("a key is required")
	}
	desc := s.provider().Describe(c.Context, key)
	if s.json {
		return writeJSON(s.out, map[string]string{"key": key, "description": desc})
	}
	if desc == "" {
		fmt.Fprintln(s.out, "No description found")
		return nil
	}
	fmt.Fprintln(s.out, desc)
	return nil
}

func (s *state) serve(c *cli.Context) error {
	addr := c.String("addr")
	if addr == "" {
		addr = s.cfg.Server.Addr
	}

	sess, err := s.openSession()
	if err != nil {
		return err
	}
	if err := sess.Restore(c.Context); err != nil {
		s.log.Warn("Serving without an open bookshelf", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return server.New(addr, s.api, sess, s.log).Run(c.Context, s.cfg.Server.ShutdownTimeout)
}

func criteriaFromFlags(c *cli.Context) (view.Criteria, error) {
	return view.ParseCriteria(c.String("genre"), c.String("language"), c.String("status"), c.String("query"), c.String("sort"))
}

func bookFormFromFlags(c *cli.Context) validation.BookForm {
	return validation.BookForm{
		Title:         c.String("title"),
		Author:        c.String("author"),
		Pages:         c.String("pages"),
		CoverURL:      c.String("cover-url"),
		Description:   c.String("description"),
		Publisher:     c.String("publisher"),
		PublishedDate: c.String("published-date"),
		ISBN13:        c.String("isbn"),
		Genre:         c.String("genre"),
		Language:      c.String("language"),
		Status:        c.String("status"),
		Progress:      c.String("progress"),
		StartedAt:     c.String("started"),
		FinishedAt:    c.String("finished"),
		ReadCount:     c.String("read-count"),
		Rating:        c.String("rating"),
		Notes:         c.String("notes"),
		Favorite:      c.Bool("favorite"),
	}
}

// patchFormFromFlags sets only the fields whose flags were given
func patchFormFromFlags(c *cli.Context) validation.PatchForm {
	str := func(name string) *string {
		if !c.IsSet(name) {
			return nil
		}
		v := c.String(name)
		return &v
	}
	var favorite *bool
	if c.IsSet("favorite") {
		v := c.Bool("favorite")
		favorite = &v
	}
	return validation.PatchForm{
		Title:         str("title"),
		Author:        str("author"),
		Pages:         str("pages"),
		CoverURL:      str("cover-url"),
		Description:   str("description"),
		Publisher:     str("publisher"),
		PublishedDate: str("published-date"),
		ISBN13:        str("isbn"),
		Genre:         str("genre"),
		Language:      str("language"),
		Status:        str("status"),
		Progress:      str("progress"),
		StartedAt:     str("started"),
		FinishedAt:    str("finished"),
		ReadCount:     str("read-count"),
		Rating:        str("rating"),
		Notes:         str("notes"),
		Favorite:      favorite,
	}
}
