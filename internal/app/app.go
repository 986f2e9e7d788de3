// Package app wires configuration, storage and outbound clients into one
// value that is built once per process and closed on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/faceid/internal/advisor"
	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/constants"
	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/database/mariadb"
	"github.com/kozaktomas/faceid/internal/database/postgres"
	"github.com/kozaktomas/faceid/internal/embedding"
	"github.com/kozaktomas/faceid/internal/recognition"
)

// Options selects the optional components a command needs.
type Options struct {
	Advisor bool // build the generator, advisor and notifier
}

// App holds everything a command or the HTTP server depends on.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      database.Store
	Extractor  *embedding.Client
	Recognizer *recognition.Service
	Advisor    *advisor.Advisor  // nil unless Options.Advisor
	Notifier   *advisor.Notifier // nil unless Options.Advisor
}

// New opens the identity store and builds the requested components.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	store, err := OpenStore(ctx, &cfg.Database, cfg.Embedding.Dim)
	if err != nil {
		return nil, err
	}
	logger.Info("identity store ready", "driver", cfg.Database.Driver)

	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Dim, cfg.Embedding.Timeout)

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Extractor:  extractor,
		Recognizer: recognition.NewService(extractor, store, cfg.Matcher.Threshold, constants.MaxImageSize),
	}

	if opts.Advisor {
		generator, err := advisor.NewGenerator(ctx, cfg)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("advisor: %w", err)
		}
		a.Advisor, err = advisor.New(generator, cfg.Advisor.Timeout)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("advisor: %w", err)
		}
		a.Notifier = advisor.NewNotifier(a.Advisor, cfg.Advisor.NotifyQueue, cfg.Advisor.NotifyWorker,
			cfg.Advisor.Timeout, logger.With("component", "notifier"))
		logger.Info("advisor ready", "provider", a.Advisor.Provider())
	}

	return a, nil
}

// OpenStore connects to the configured identity database.
func OpenStore(ctx context.Context, cfg *config.DatabaseConfig, dim int) (database.Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	switch cfg.Driver {
	case "postgres", "postgresql", "":
		store, err := postgres.Open(ctx, cfg, dim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return store, nil
	case "mysql", "mariadb":
		store, err := mariadb.Open(ctx, cfg, dim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.Driver)
	}
}

// Close releases the identity store and logs generator usage.
func (a *App) Close() error {
	if a.Advisor != nil {
		if usage, ok := a.Advisor.Usage(); ok && usage.Requests > 0 {
			a.Logger.Info("advisor usage",
				"provider", a.Advisor.Provider(),
				"requests", usage.Requests,
				"input_tokens", usage.InputTokens,
				"output_tokens", usage.OutputTokens,
			)
		}
	}
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
