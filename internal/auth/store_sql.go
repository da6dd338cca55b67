package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"myconnectionsvr/loginportal/internal/database"
)

// SQLUserStore reads and writes the users table through a pooled *sql.DB.
// All values are bound as query parameters.
type SQLUserStore struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSQLUserStore(db *sql.DB, dialect database.Dialect) (*SQLUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &SQLUserStore{db: db, dialect: dialect}, nil
}

func (s *SQLUserStore) MatchCredentials(ctx context.Context, username, password string) (bool, error) {
	q := s.dialect.Rebind(`SELECT 1 FROM users WHERE username = ? AND password = ? LIMIT 1`)

	var found int
	if err := s.db.QueryRowContext(ctx, q, username, password).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query user credentials: %w", err)
	}
	return true, nil
}

func (s *SQLUserStore) PasswordsByUsername(ctx context.Context, username string) ([]string, error) {
	q := s.dialect.Rebind(`SELECT password FROM users WHERE username = ?`)
	rows, err := s.db.QueryContext(ctx, q, username)
	if err != nil {
		return nil, fmt.Errorf("query user passwords: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var password string
		if err := rows.Scan(&password); err != nil {
			return nil, fmt.Errorf("scan user password: %w", err)
		}
		out = append(out, password)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user passwords: %w", err)
	}
	return out, nil
}

// Create inserts one row and commits it. Username uniqueness is left to the
// schema; a constraint hit is reported as ErrDuplicateUsername.
func (s *SQLUserStore) Create(ctx context.Context, user User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := s.dialect.Rebind(`INSERT INTO users (username, password) VALUES (?, ?)`)
	if _, err := tx.ExecContext(ctx, q, user.Username, user.Password); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert user: %w: %w", ErrDuplicateUsername, err)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user tx: %w", err)
	}
	return nil
}
