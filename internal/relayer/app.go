// Package relayer initializes and runs the development decryption relayer.
// It opens the Postgres store, applies migrations, and serves the HTTP API
// until the process is signalled.
package relayer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/auth"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/config"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/httpapi"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/repositories/repomanager"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/services"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	logger  logging.Logger
	service *services.DecryptService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	svc, err := services.NewDecryptService(db, rm, c, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{config: c, db: db, logger: logger, service: svc}, nil
}

// IssueToken returns an access token for client signed with the configured
// secret.
func IssueToken(c *config.Config, client string) (string, error) {
	return auth.GenerateToken(client, []byte(c.SecretKey), c.TokenValidity)
}

func (app *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.db.Close()

	d := app.service.Domain()
	app.logger.Info(ctx, "Starting app...", "chain_id", d.ChainID, "verifying_contract", d.VerifyingContract.Hex())

	s := httpapi.NewServer(app.config.EndpointAddr, app.logger, app.service, app.config.SecretKey, app.config.ShutdownTimeout)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
