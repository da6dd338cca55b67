// Package database opens the relational store behind the user table. It hides
// the driver choice (lib/pq, pgx, MySQL or SQLite) behind a pooled *sql.DB and
// a Dialect describing how queries must be written for it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"myconnectionsvr/loginportal/internal/config"
)

const (
	defaultPostgresPort = 5432
	defaultMySQLPort    = 3306
)

// sqlOpen is swapped in tests.
var sqlOpen = sql.Open

// DriverName returns the database/sql driver registered for a configured driver.
func DriverName(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres:
		return "postgres", nil
	case config.DriverPGX:
		return "pgx", nil
	case config.DriverMySQL:
		return "mysql", nil
	case config.DriverSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DSN builds the connection string for cfg. DATABASE_URL wins when set.
func DSN(cfg config.DBConfig) (string, error) {
	if strings.TrimSpace(cfg.URL) != "" {
		return cfg.URL, nil
	}

	switch cfg.Driver {
	case config.DriverPostgres, config.DriverPGX:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   hostPort(cfg.Host, cfg.Port, defaultPostgresPort),
			Path:   "/" + cfg.Name,
		}
		if cfg.SSLMode != "" {
			q := url.Values{}
			q.Set("sslmode", cfg.SSLMode)
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	case config.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = hostPort(cfg.Host, cfg.Port, defaultMySQLPort)
		mc.DBName = cfg.Name
		return mc.FormatDSN(), nil
	case config.DriverSQLite:
		if strings.TrimSpace(cfg.Name) == "" {
			return "", fmt.Errorf("sqlite database path is required")
		}
		return cfg.Name, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open returns a connection pool for cfg. It does not contact the server;
// use Ping for that.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	driverName, err := DriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("build dsn: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	// Every connection to an in-memory SQLite database sees its own empty
	// database, so the pool is pinned to a single connection.
	if cfg.Driver == config.DriverSQLite && isMemoryDSN(dsn) {
		maxOpen, maxIdle = 1, 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database is not configured")
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func hostPort(host string, port, fallback int) string {
	if port <= 0 {
		port = fallback
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}
