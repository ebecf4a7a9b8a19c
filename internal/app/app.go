// Package app opens a data directory and wires the services that work on
// it. Both the CLI and the HTTP server go through an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/auth"
	"github.com/rojas-cambio/cambio/internal/cash"
	"github.com/rojas-cambio/cambio/internal/config"
	"github.com/rojas-cambio/cambio/internal/gitops"
	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/logger"
	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/position"
	"github.com/rojas-cambio/cambio/internal/rates"
	"github.com/rojas-cambio/cambio/internal/users"
)

// ErrUnknownUser is returned when the acting user does not exist.
var ErrUnknownUser = errors.New("unknown user")

// App is an opened data directory.
type App struct {
	Dir        string
	Config     *config.Config
	Logger     *slog.Logger
	Currencies []model.Currency

	Store      ledger.Store
	Ledger     *ledger.Service
	Users      *users.Service
	Activity   *activity.Log
	Board      *rates.Board
	Calculator *cash.Calculator
	Sessions   *cash.Sessions
	Committer  *gitops.Committer
}

// Open loads <dir>/cambio.yaml and builds every service. Logs go to logOut.
func Open(ctx context.Context, dir string, logOut io.Writer) (*App, error) {
	cfg, err := config.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config (is %s a cambio data directory?): %w", dir, err)
	}
	currencies, err := cfg.CurrencyCodes()
	if err != nil {
		return nil, err
	}
	log := logger.New(logOut, cfg.Log.Level, cfg.Log.Format)

	store, err := openStore(ctx, dir, cfg)
	if err != nil {
		return nil, err
	}

	audit := activity.NewLog(dir)
	userSvc, err := users.Load(dir, audit)
	if err != nil {
		store.Close()
		return nil, err
	}

	provider, err := NewProvider(cfg, currencies, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	calc := cash.NewCalculator(store, currencies, log)
	repo := gitops.New(dir, cfg.Git.AuthorName, cfg.Git.AuthorEmail)

	return &App{
		Dir:        dir,
		Config:     cfg,
		Logger:     log,
		Currencies: currencies,
		Store:      store,
		Ledger:     ledger.NewService(store, position.NewAggregator(currencies...), audit, log),
		Users:      userSvc,
		Activity:   audit,
		Board:      rates.NewBoard(dir, provider),
		Calculator: calc,
		Sessions:   cash.NewSessions(calc),
		Committer:  gitops.NewCommitter(repo, cfg.Git.AutoCommit),
	}, nil
}

func openStore(ctx context.Context, dir string, cfg *config.Config) (ledger.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		s, err := ledger.OpenSQLite(ctx, cfg.StoragePath(dir))
		if err != nil {
			return nil, fmt.Errorf("opening transaction database: %w", err)
		}
		return s, nil
	default:
		return ledger.NewCSVStore(dir), nil
	}
}

// NewProvider builds the configured rate provider: yahoo or simulated,
// optionally falling back to simulated, wrapped in a TTL cache.
func NewProvider(cfg *config.Config, currencies []model.Currency, log *slog.Logger) (rates.Provider, error) {
	var p rates.Provider = rates.NewSimulated(currencies, time.Now().UnixNano())
	if cfg.Rates.Provider == "yahoo" {
		margin, err := decimal.NewFromString(cfg.Rates.Margin)
		if err != nil || margin.IsNegative() {
			return nil, fmt.Errorf("config: invalid rates margin %q", cfg.Rates.Margin)
		}
		yahoo := rates.NewYahoo(currencies, cfg.Local(), margin, cfg.Rates.Timeout)
		p = yahoo
		if cfg.Rates.Fallback {
			p = rates.NewFallback(yahoo, rates.NewSimulated(currencies, time.Now().UnixNano()), log)
		}
	}
	if cfg.Rates.CacheTTL > 0 {
		p = rates.NewCached(p, cfg.Rates.CacheTTL)
	}
	return p, nil
}

// Tokens builds the API token issuer from the configured secret.
func (a *App) Tokens() (*auth.Tokens, error) {
	if a.Config.JWTSecret == "" {
		return nil, errors.New("CAMBIO_JWT_SECRET is not set")
	}
	return auth.NewTokens(a.Config.JWTSecret, a.Config.Server.TokenTTL)
}

// Actor resolves the user acting through the CLI and checks that it holds
// capability c.
func (a *App) Actor(email string, c access.Capability) (model.User, error) {
	if email == "" {
		return model.User{}, errors.New("acting user required: pass --as <email> or set CAMBIO_AS")
	}
	u, ok := a.Users.ByEmail(email)
	if !ok {
		return model.User{}, fmt.Errorf("%s: %w", email, ErrUnknownUser)
	}
	if err := access.Require(u, c); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Commit snapshots the data directory when auto-commit is on and returns
// the short hash. Failures are logged, not returned.
func (a *App) Commit(ctx context.Context, message string) string {
	hash, err := a.Committer.Commit(ctx, message)
	if err != nil {
		a.Logger.Warn("auto-commit failed", "message", message, "error", err)
		return ""
	}
	if hash != "" {
		a.Logger.Debug("committed", "hash", hash, "message", message)
	}
	return hash
}

// ImportDir is where import files are dropped.
func (a *App) ImportDir() string {
	return filepath.Join(a.Dir, "import")
}

// Close releases the transaction store.
func (a *App) Close() error {
	return a.Store.Close()
}
