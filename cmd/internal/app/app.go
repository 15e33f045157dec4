// Package app wires the teller runtime: config, logging, stores, the ledger
// and session cores, and the operational HTTP endpoints.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"teller/cmd/internal/auth/session"
	"teller/cmd/internal/core"
	"teller/cmd/internal/directory"
	"teller/cmd/internal/ledger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App owns the wired runtime: the core facade plus the ops HTTP server.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	core *core.Core
}

// New constructs a fully wired App instance from config and logger.
//
// With TELLER_DATABASE_URL set, all stores are Postgres-backed and the schema
// is bootstrapped at startup; otherwise the in-memory stores serve as the dev
// fallback.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	var (
		dbPool    *pgxpool.Pool
		dbEnabled bool

		dir       directory.Store
		balances  ledger.Store
		sessStore session.Store
	)

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")

		memBalances := ledger.NewMemoryStore(ledger.WithMemoryLockTimeout(cfg.LockTimeout))
		balances = memBalances
		dir = directory.NewMemoryStore(memBalances)
		sessStore = session.NewMemoryStore()
	} else {
		dbPool, err = NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dbEnabled = true
		log.Info("db.enabled.postgres_store")

		pgDir, err := directory.NewPostgresStore(dbPool, directory.WithSchema(cfg.DBSchema))
		if err != nil {
			dbPool.Close()
			return nil, err
		}
		pgBalances, err := ledger.NewPostgresStore(dbPool,
			ledger.WithSchema(cfg.DBSchema),
			ledger.WithLockTimeout(cfg.LockTimeout),
		)
		if err != nil {
			dbPool.Close()
			return nil, err
		}
		pgSessions, err := session.NewPostgresStore(dbPool, session.WithSchema(cfg.DBSchema))
		if err != nil {
			dbPool.Close()
			return nil, err
		}

		// Bootstrap order matters: accounts first, then its dependents.
		for _, ensure := range []func(context.Context) error{
			pgDir.EnsureSchema,
			pgBalances.EnsureSchema,
			pgSessions.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				dbPool.Close()
				return nil, err
			}
		}

		dir = pgDir
		balances = pgBalances
		sessStore = pgSessions
	}

	engine, err := ledger.NewEngine(balances, log)
	if err != nil {
		return nil, err
	}
	manager, err := session.NewManager(sessCfg, sessStore, log)
	if err != nil {
		return nil, err
	}
	facade, err := core.New(dir, engine, manager)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		core:      facade,
	}, nil
}

// Core exposes the wired facade to the command layer embedding this app.
func (a *App) Core() *core.Core { return a.core }

// Run starts the ops HTTP server and blocks until context cancellation or a
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerOps(mux, a.log, a.cfg, a.dbPool, a.dbEnabled)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}
