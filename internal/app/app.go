package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/taskforge/taskforge/internal/http"
	"github.com/taskforge/taskforge/internal/service"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/store/drivers/sqlite"
	"github.com/taskforge/taskforge/pkg/cryptox"
	"github.com/taskforge/taskforge/pkg/jwtx"
	"github.com/taskforge/taskforge/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Token lifetimes are protocol constants, not configuration.
const (
	accessTokenTTL  = 10 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	pendingTokenTTL = time.Hour
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	authService *service.AuthService
	userService *service.UserService
	mfaService  *service.MFAService
	taskService *service.TaskService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "taskforge",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("taskforge starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down taskforge...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("taskforge stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	access, err := jwtx.NewSigner(app.cfg.AccessTokenSecret, accessTokenTTL)
	if err != nil {
		return fmt.Errorf("access token signer: %w", err)
	}
	refresh, err := jwtx.NewSigner(app.cfg.RefreshTokenSecret, refreshTokenTTL)
	if err != nil {
		return fmt.Errorf("refresh token signer: %w", err)
	}
	pending, err := jwtx.NewSigner(app.cfg.TwoFATokenSecret, pendingTokenTTL)
	if err != nil {
		return fmt.Errorf("pending token signer: %w", err)
	}

	key, err := app.cfg.CipherKey()
	if err != nil {
		return err
	}
	cipher, err := cryptox.NewSecretCipher(key)
	if err != nil {
		return fmt.Errorf("secret cipher: %w", err)
	}

	app.authService = &service.AuthService{
		Store:   app.db,
		Access:  access,
		Refresh: refresh,
		Pending: pending,
	}
	app.userService = &service.UserService{Store: app.db}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Cipher: cipher,
		Issuer: app.cfg.TOTPIssuer,
	}
	app.taskService = &service.TaskService{Store: app.db}

	return nil
}

// initHTTP wires the router and HTTP server.
func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(BuildVersion, refreshTokenTTL, app.db, app.logger)
	app.router.SecureCookies = app.cfg.Env != "dev"
	app.router.AuthService = app.authService
	app.router.UserService = app.userService
	app.router.MFAService = app.mfaService
	app.router.TaskService = app.taskService
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
