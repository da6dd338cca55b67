package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"myconnectionsvr/loginportal/internal/audit"
	"myconnectionsvr/loginportal/internal/auth"
	"myconnectionsvr/loginportal/internal/config"
	"myconnectionsvr/loginportal/internal/database"
	"myconnectionsvr/loginportal/internal/httpserver"
	"myconnectionsvr/loginportal/internal/session"
)

const startupTimeout = 5 * time.Second

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *sql.DB
	audit  *audit.Logger
	server *httpserver.Server
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	dialect := database.DialectFor(cfg.DB.Driver)

	// An unreachable database only fails the requests that need it.
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		logger.Warn("database not reachable at startup", "driver", cfg.DB.Driver, "error", err)
	}

	if cfg.DB.EnsureSchema {
		if err := auth.EnsureSchema(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("users table ensured", "driver", cfg.DB.Driver)
	}

	userStore, err := auth.NewSQLUserStore(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create user store: %w", err)
	}
	authService, err := auth.NewService(userStore, auth.ServiceConfig{
		PasswordMode: auth.PasswordMode(cfg.Auth.PasswordMode),
		BcryptCost:   cfg.Auth.BcryptCost,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create auth service: %w", err)
	}
	if authService.Mode() == auth.PasswordPlaintext {
		logger.Warn("passwords are stored and compared in plaintext", "setting", "AUTH_PASSWORD_MODE")
	}

	sessions, err := session.NewManager(cfg.Session)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	templates, err := httpserver.ParseTemplates(cfg.TemplatesDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	auditLogger, err := audit.NewLogger(cfg.AuditLogFile)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	server := httpserver.New(cfg.HTTP, httpserver.Deps{
		Auth:      authService,
		Sessions:  sessions,
		Audit:     auditLogger,
		Templates: templates,
		Logger:    logger,
		Ready: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
	})

	return &App{
		cfg:    cfg,
		log:    logger,
		db:     db,
		audit:  auditLogger,
		server: server,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Close releases the audit file and the database pool. Run and Serve call
// it on their own.
func (a *App) Close() error {
	auditErr := a.audit.Close()
	if a.db == nil {
		return auditErr
	}
	return errors.Join(auditErr, a.db.Close())
}

func (a *App) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		_ = a.Close()
		return fmt.Errorf("listen %s: %w", a.cfg.HTTP.Addr, err)
	}
	return a.Serve(ctx, l)
}

// Serve runs the HTTP server on l until ctx is cancelled.
func (a *App) Serve(ctx context.Context, l net.Listener) error {
	defer func() {
		_ = a.Close()
	}()

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", "addr", l.Addr().String())
		errCh <- a.server.Serve(l)
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
