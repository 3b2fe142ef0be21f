package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/drallgood/bookshelf/internal/api/bookshelf"
	"github.com/drallgood/bookshelf/internal/api/hardcover"
	"github.com/drallgood/bookshelf/internal/api/openlibrary"
	"github.com/drallgood/bookshelf/internal/config"
	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/metadata"
	"github.com/drallgood/bookshelf/internal/session"
	"github.com/drallgood/bookshelf/internal/tokenstore"
	"github.com/drallgood/bookshelf/internal/util"
)

var errNotLoggedIn = errors.New("no bookshelf is open for editing; run `bookshelf login` first")

// state is what every command shares. Stores are opened lazily so commands
// that never touch the session do not create files.
type state struct {
	in      io.Reader
	out     io.Writer
	json    bool
	cfg     *config.Config
	log     *logger.Logger
	api     bookshelf.ClientInterface
	tokens  tokenstore.Store
	session *session.Store
}

func (s *state) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if c.Bool("ephemeral") {
		cfg.Session.Backend = config.BackendMemory
	}

	logCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: logger.ParseLogFormat(cfg.Logging.Format),
		Output: c.App.ErrWriter,
	}
	logger.ForceSetup(logCfg)

	s.cfg = cfg
	s.out = c.App.Writer
	s.json = c.Bool("json")
	s.log = logger.Get()
	s.api = bookshelf.NewClient(cfg.API.BaseURL, cfg.API.Timeout, s.log)

	s.log.Debug("Configuration loaded", map[string]interface{}{
		"api_base_url":      cfg.API.BaseURL,
		"session_backend":   cfg.Session.Backend,
		"metadata_provider": cfg.Metadata.Provider,
	})
	return nil
}

func (s *state) close() error {
	if s.tokens == nil {
		return nil
	}
	err := s.tokens.Close()
	s.tokens, s.session = nil, nil
	return err
}

// openSession opens the token store and creates an anonymous session
func (s *state) openSession() (*session.Store, error) {
	if s.session != nil {
		return s.session, nil
	}
	tokens, err := tokenstore.New(s.cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.tokens = tokens
	s.session = session.New(s.api, tokens, s.log)
	return s.session, nil
}

// restore opens the session and restores the stored token. A token the
// server no longer accepts is cleared. Other refresh failures are only
// fatal when strict is set.
func (s *state) restore(ctx context.Context, strict bool) (*session.Store, error) {
	sess, err := s.openSession()
	if err != nil {
		return nil, err
	}
	err = sess.Restore(ctx)
	if err != nil && bookshelf.IsAccessError(err) {
		if clearErr := sess.ClearBookshelf(ctx); clearErr != nil {
			s.log.Warn("Failed to clear rejected token", map[string]interface{}{
				"error": clearErr.Error(),
			})
		}
		return nil, fmt.Errorf("the stored edit token is no longer accepted and was removed: %w", err)
	}
	if !sess.CanEdit() {
		if err != nil {
			return nil, err
		}
		return nil, errNotLoggedIn
	}
	if err != nil {
		if strict {
			return nil, err
		}
		s.log.Warn("Could not refresh bookshelf", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return sess, nil
}

func (s *state) provider() metadata.Provider {
	m := s.cfg.Metadata
	limiter := util.NewRateLimiter(m.Rate, m.Burst, s.log)

	var p metadata.Provider
	switch m.Provider {
	case config.ProviderOpenLibrary:
		p = openlibrary.NewClient(m.OpenLibraryURL, s.cfg.API.Timeout, limiter, s.log)
	case config.ProviderHardcover:
		hc, err := hardcover.NewClient(m.HardcoverURL, m.HardcoverToken, s.cfg.API.Timeout, limiter, s.log)
		if err != nil {
			s.log.Warn("Metadata lookups disabled", map[string]interface{}{
				"provider": m.Provider,
				"error":    err.Error(),
			})
			return metadata.Nop{}
		}
		p = hc
	default:
		return metadata.Nop{}
	}
	return metadata.NewCached(p, m.CacheTTL, s.log)
}

// readSecret reads a line without echo when in is a terminal
func (s *state) readSecret(prompt string) (string, error) {
	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
