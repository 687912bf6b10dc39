// Package app wires configuration, storage, keys, services, and the HTTP
// surface into a runnable authentication service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/lockplane/authd/internal/auth/http"
	"github.com/lockplane/authd/internal/auth/mail"
	"github.com/lockplane/authd/internal/auth/service"
	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/internal/auth/store/drivers/sqlite"
	"github.com/lockplane/authd/pkg/cryptox"
	"github.com/lockplane/authd/pkg/jwtx"
	"github.com/lockplane/authd/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec
	keys  *jwtx.KeySet

	authenticator       *service.Authenticator
	sessionService      *service.SessionService
	resetService        *service.ResetService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized: database
// migrated, keys loaded, services wired, routes applied.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, keys, err := InitSigningKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize signing keys: %w", err)
	}
	app.keys = keys
	app.codec = jwtx.NewCodec(signer, keys, cfg.Issuer)

	if err := app.initServices(); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run seeds the admin account if needed, starts housekeeping and the HTTP
// server, and blocks until shutdown is requested.
func (app *Application) Run() error {
	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := app.bootstrapService.EnsureAdmin(ctx); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	app.housekeepingService.Start(ctx)

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown drains in-flight requests, stops background work, and closes
// the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initServices() error {
	// Every authentication attempt lands in the audit log with its outcome.
	auditHook := func(ctx context.Context, username string, ok bool) {
		slogx.FromContext(ctx).Info("authentication attempt",
			"username", username,
			"success", ok,
		)
	}

	auth, err := service.NewAuthenticator(app.db, auditHook)
	if err != nil {
		return fmt.Errorf("initialize authenticator: %w", err)
	}
	app.authenticator = auth

	app.sessionService = &service.SessionService{
		Codec:      app.codec,
		Store:      app.db,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.resetService = &service.ResetService{
		Store:    app.db,
		Notifier: app.initNotifier(),
		TokenTTL: app.cfg.ResetTokenTTL,
	}

	adminPassword := app.cfg.AdminPassword
	if adminPassword == "" {
		adminPassword, err = cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		// Logged once so a fresh deployment can log in; rotate it after.
		app.logger.Warn("no admin password configured, generated one",
			"username", app.cfg.AdminUsername,
			"password", adminPassword,
		)
	}
	app.bootstrapService = &service.BootstrapService{
		Store:         app.db,
		AdminUsername: app.cfg.AdminUsername,
		AdminPassword: adminPassword,
	}

	app.housekeepingService = &service.HousekeepingService{
		Store:    app.db,
		Interval: app.cfg.HousekeepingInterval,
	}

	return nil
}

func (app *Application) initNotifier() mail.Notifier {
	if app.cfg.SMTPAddr == "" {
		app.logger.Warn("no SMTP configured, reset tokens will be logged (dev only)")
		return mail.LogNotifier{}
	}
	return &mail.SMTPNotifier{
		Addr:     app.cfg.SMTPAddr,
		From:     app.cfg.SMTPFrom,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		ResetURL: app.cfg.ResetURL,
	}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		app.codec,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Authenticator = app.authenticator
	router.SessionService = app.sessionService
	router.ResetService = app.resetService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
