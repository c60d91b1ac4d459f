// Package app wires a workspace into a ready-to-use engine.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/rs/zerolog"

	"rewario/internal/config"
	"rewario/internal/db"
	"rewario/internal/engine"
	"rewario/internal/logging"
	"rewario/internal/migrate"
	"rewario/internal/store"
)

type Options struct {
	Workspace string
	// ConfigPath overrides <workspace>/rewario.yml.
	ConfigPath string
	LogWriter  io.Writer
	Rand       *rand.Rand
}

type App struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
	Log    zerolog.Logger

	closers []func() error
}

// Open loads config, migrates the database, selects the store backend and restores state.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.Path(opts.Workspace)
	}
	cfg, err := config.LoadOptional(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	log := logging.New(cfg.Log, w)

	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	a := &App{DB: conn, Config: cfg, Log: log, closers: []func() error{conn.Close}}
	if _, err := migrate.MigrateContext(ctx, conn); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	st, closeStore, err := OpenStore(ctx, cfg.Storage, conn)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}
	log.Debug().Str("backend", cfg.Storage.Backend).Str("db", db.Path(opts.Workspace)).Msg("workspace opened")

	a.Engine = engine.New(conn, st, cfg, log, opts.Rand)
	if err := a.Engine.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// OpenStore returns the key-value backend named by cfg. The close func is nil for SQLite.
func OpenStore(ctx context.Context, cfg config.StorageConfig, conn *sql.DB) (store.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		r, err := store.NewRedis(ctx, store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return r, r.Close, nil
	case config.BackendSQLite, "":
		return store.SQLite{DB: conn}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close releases the store and the database, newest first.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
