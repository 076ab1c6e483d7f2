/*
main.go - Application entry point

PURPOSE:
  Starts the gamification state engine server. Configuration comes
  from the environment (config package) with command-line flags taking
  precedence.

STORAGE BACKENDS:
  -backend=sqlite   Durable SQLite store (no cross-process change feed;
                    clients rely on the focus-regain resync).
  -backend=dir      File-per-key directory with an fsnotify change feed:
                    several processes sharing the directory observe each
                    other's writes, like tabs sharing browser storage.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the HTTP server drains for up to 10s, then the
  medium is closed.

EXAMPLES:
  ./server -backend=sqlite -db=./data/finesse.db
  ./server -backend=dir -data=./data/kv -remote=http://localhost:8000/api
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finesse/gamify-engine/api"
	"github.com/finesse/gamify-engine/config"
	"github.com/finesse/gamify-engine/content"
	"github.com/finesse/gamify-engine/engine"
	"github.com/finesse/gamify-engine/remote"
	"github.com/finesse/gamify-engine/store/fskv"
	"github.com/finesse/gamify-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Flags override the environment.
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "storage backend: sqlite or dir")
	flag.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database path")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "data directory for the dir backend")
	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "YAML lesson catalog path")
	flag.StringVar(&cfg.RemoteAPIURL, "remote", cfg.RemoteAPIURL, "backend API base URL for best-effort pushes")
	flag.Parse()

	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage medium
	var (
		medium  engine.Medium
		cleanup func() error
	)
	switch cfg.Backend {
	case config.BackendDir:
		m, err := fskv.New(cfg.DataDir, log.Named("fskv"))
		if err != nil {
			return fmt.Errorf("failed to open data directory: %w", err)
		}
		medium, cleanup = m, m.Close
	case config.BackendSQLite:
		m, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		medium, cleanup = m, m.Close
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	defer cleanup()

	// Lesson content
	var src content.Source
	var quizzes engine.QuizSource
	switch {
	case cfg.CatalogPath != "":
		catalog, err := content.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return err
		}
		src, quizzes = catalog, catalog
	case cfg.RemoteAPIURL != "":
		apiSrc := content.NewAPISource(cfg.RemoteAPIURL)
		src, quizzes = apiSrc, apiSrc
	default:
		catalog := content.Default()
		src, quizzes = catalog, catalog
	}

	// Engine
	store := engine.NewStore(medium)
	store.SetLogger(log.Named("store"))

	ledger := engine.NewLedger(store)
	ledger.Log = log.Named("ledger")
	if cfg.RemoteAPIURL != "" {
		ledger.Remote = remote.New(cfg.RemoteAPIURL, log.Named("remote"))
	}

	daily := engine.NewDailyChallenge(store, ledger, quizzes)

	handler := api.NewHandler(store, ledger, daily, src)
	handler.Log = log.Named("api")
	handler.Migrator.SetLogger(log.Named("migrate"))
	handler.Sync.Log = log.Named("sync")

	// Prime the cached view and attach the change feed when available.
	handler.Sync.Refresh(ctx)
	if cancel, err := handler.Sync.Watch(ctx); err != nil {
		if errors.Is(err, engine.ErrNotWatchable) {
			log.Info("medium has no change feed; relying on focus resync")
		} else {
			return err
		}
	} else {
		defer cancel()
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(handler, cfg.Origins),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			zap.Int("port", cfg.Port), zap.String("backend", cfg.Backend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}
