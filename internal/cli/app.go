// Package cli is the interactive terminal client.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/margin-app/margin/internal/config"
	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/remote"
	"github.com/margin-app/margin/internal/repositories/entries"
	fragrepo "github.com/margin-app/margin/internal/repositories/fragments"
	"github.com/margin-app/margin/internal/repositories/practices"
	"github.com/margin-app/margin/internal/repositories/sessions"
	"github.com/margin-app/margin/internal/repositories/syncstate"
	"github.com/margin-app/margin/internal/services"
	"github.com/margin-app/margin/internal/storage"
	"github.com/margin-app/margin/internal/sync"
)

type App struct {
	config *config.Config
	db     *sql.DB
	client *remote.Client

	entrySvc    *services.EntryService
	sessionSvc  *services.SessionService
	fragmentSvc *services.FragmentService

	state        syncstate.Repository
	orchestrator *sync.Orchestrator
	catalog      *sync.CatalogModule

	userEmail string
	reader    *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	entryRepo := entries.NewSQLiteRepository(db)
	sessionRepo := sessions.NewSQLiteRepository(db)
	practiceRepo := practices.NewSQLiteRepository(db)
	fragmentRepo := fragrepo.NewSQLiteRepository(db)
	stateRepo := syncstate.NewSQLiteRepository(db)

	if _, err := practices.Seed(ctx, practiceRepo); err != nil {
		_ = db.Close()
		return nil, err
	}

	client := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteAPIKey)

	catalog := sync.NewCatalogModule(fragmentRepo, client, stateRepo, cfg.CatalogVersion, logger)
	orchestrator := sync.NewOrchestrator(client, logger,
		sync.NewEntriesModule(entryRepo, client, client, stateRepo, cfg.SyncBatchSize, logger),
		sync.NewSessionsModule(sessionRepo, client, client, stateRepo, cfg.SyncBatchSize, logger),
		catalog,
		sync.NewRevealsModule(fragmentRepo, client, client, cfg.SyncBatchSize, logger),
	)

	return &App{
		config:       cfg,
		db:           db,
		client:       client,
		entrySvc:     services.NewEntryService(entryRepo, logger),
		sessionSvc:   services.NewSessionService(sessionRepo, practiceRepo, stateRepo, logger),
		fragmentSvc:  services.NewFragmentService(fragmentRepo, sessionRepo, stateRepo, cfg.FragmentsEnabled, logger),
		state:        stateRepo,
		orchestrator: orchestrator,
		catalog:      catalog,
		reader:       bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	u, err := a.client.CurrentUser(context.Background())
	return err == nil && u != nil
}
