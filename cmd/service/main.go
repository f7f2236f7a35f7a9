// cmd/service/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"portfolio-sync/internal/config"
	"portfolio-sync/internal/credentials"
	"portfolio-sync/internal/crypto"
	"portfolio-sync/internal/database"
	"portfolio-sync/internal/githubapi"
	"portfolio-sync/internal/syncer"
)

func main() {
	root := &cobra.Command{
		Use:          "service",
		Short:        "GitHub repository cache for the portfolio site",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newSyncCmd(), newCredentialsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired application components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	store  *database.Store
	creds  *credentials.Store
}

// newApp loads configuration, connects to the database and runs migrations.
func newApp(ctx context.Context) (*app, error) {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Initialize database connection and run migrations
	pool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 4. Credential storage, degraded when no encryption key is configured
	cryptoMgr, err := crypto.NewManager(cfg.EncryptionKey)
	if err != nil {
		logger.Warn("Credential encryption disabled", "reason", err)
		cryptoMgr = nil
	}
	store := database.NewStore(pool)
	creds := credentials.NewStore(store, cryptoMgr, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		store:  store,
		creds:  creds,
	}, nil
}

func (a *app) close() {
	a.pool.Close()
}

// newEngine builds the sync engine with the configured token resolution
// chain: stored credential first, bootstrap environment token second. With
// public set, the engine runs unauthenticated instead.
func (a *app) newEngine(public bool) *syncer.Syncer {
	var tokens githubapi.TokenSource
	if public {
		tokens = githubapi.AnonymousTokenSource{}
	} else {
		tokens = githubapi.ChainTokenSource{
			a.creds.TokenSource(a.cfg.GithubAccount),
			githubapi.StaticTokenSource{AccessToken: a.cfg.GithubToken},
		}
	}

	client := githubapi.NewClient(tokens, a.cfg.PageSize, a.logger)
	return syncer.NewSyncer(a.store, client, a.logger)
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
