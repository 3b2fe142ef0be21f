// Command bookshelf manages a bookshelf from the terminal: create one, unlock
// it with its edit token, edit books, import and export, and preview views.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/drallgood/bookshelf/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		printError(os.Stderr, err)
		logger.Get().Debug("Command failed", map[string]interface{}{
			"error": err.Error(),
		})
		stop()
		os.Exit(1)
	}
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.App {
	st := &state{in: in}

	return &cli.App{
		Name:      "bookshelf",
		Usage:     "Keep track of the books you read",
		Version:   fmt.Sprintf("%s (%s) %s", version, commit, date),
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"BOOKSHELF_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
			&cli.BoolFlag{
				Name:  "ephemeral",
				Usage: "Keep the edit token in memory only",
			},
		},
		Before: func(c *cli.Context) error {
			return st.setup(c)
		},
		After: func(c *cli.Context) error {
			return st.close()
		},
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new bookshelf and print its edit token",
				Flags: append(shelfFlags(true), &cli.BoolFlag{
					Name:  "save",
					Usage: "Store the edit token and open the new bookshelf for editing",
				}),
				Action: st.createShelf,
			},
			{
				Name:  "login",
				Usage: "Unlock a bookshelf with its edit token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Edit token; prompted for when omitted",
						EnvVars: []string{"BOOKSHELF_EDIT_TOKEN"},
					},
				},
				Action: st.login,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored edit token",
				Action: st.logout,
			},
			{
				Name:   "status",
				Usage:  "Show the current session",
				Action: st.status,
			},
			{
				Name:   "books",
				Usage:  "List the books of your bookshelf",
				Flags:  viewFlags(),
				Action: st.listBooks,
			},
			{
				Name:      "show",
				Usage:     "Show a public bookshelf",
				ArgsUsage: "<publicId>",
				Flags:     viewFlags(),
				Action:    st.showShelf,
			},
			{
				Name:  "add",
				Usage: "Add a book",
				Flags: append(bookFlags(), &cli.BoolFlag{
					Name:  "lookup",
					Usage: "Fill blank fields from the best metadata match",
				}),
				Action: st.addBook,
			},
			{
				Name:      "update",
				Usage:     "Edit a book; only the given fields change",
				ArgsUsage: "<bookId>",
				Flags:     bookFlags(),
				Action:    st.updateBook,
			},
			{
				Name:      "remove",
				Usage:     "Remove a book",
				ArgsUsage: "<bookId>",
				Action:    st.removeBook,
			},
			{
				Name:   "rename",
				Usage:  "Rename or redescribe your bookshelf; unset flags keep their current value",
				Flags:  shelfFlags(false),
				Action: st.renameShelf,
			},
			{
				Name:  "delete-shelf",
				Usage: "Delete your bookshelf and all of its books",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm the deletion"},
				},
				Action: st.deleteShelf,
			},
			{
				Name:  "export",
				Usage: "Write your bookshelf as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to `FILE` instead of standard output",
					},
				},
				Action: st.exportShelf,
			},
			{
				Name:      "import",
				Usage:     "Add the books of an exported bookshelf, skipping ones already present",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "parallel",
						Usage: "How many books to create at once",
						Value: 4,
					},
				},
				Action: st.importShelf,
			},
			{
				Name:  "search",
				Usage: "Search book metadata",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}},
					&cli.IntFlag{Name: "limit", Value: 5},
				},
				Action: st.search,
			},
			{
				Name:      "describe",
				Usage:     "Print the description of a metadata match",
				ArgsUsage: "<key>",
				Action:    st.describe,
			},
			{
				Name:  "serve",
				Usage: "Serve read-only bookshelf views over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address"},
				},
				Action: st.serve,
			},
		},
	}
}

func shelfFlags(nameRequired bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: nameRequired},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
	}
}

func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "genre"},
		&cli.StringFlag{Name: "language"},
		&cli.StringFlag{Name: "status"},
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}},
		&cli.StringFlag{Name: "sort", Usage: "favoritesFirst, ratingAsc, ratingDesc, finishedAtAsc, finishedAtDesc, titleAsc, titleDesc or createdAtDesc"},
	}
}

// bookFlagNames are the book form flags shared by add and update
var bookFlagNames = []string{
	"title", "author", "pages", "cover-url", "description", "publisher",
	"published-date", "isbn", "genre", "language", "status", "progress",
	"started", "finished", "read-count", "rating", "notes",
}

func bookFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(bookFlagNames)+1)
	for _, name := range bookFlagNames {
		flags = append(flags, &cli.StringFlag{Name: name})
	}
	return append(flags, &cli.BoolFlag{Name: "favorite"})
}
