package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	"myconnectionsvr/loginportal/internal/database"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	Username string `bun:"username,type:text"`
	Password string `bun:"password,type:text"`
}

// EnsureSchema creates the users table when it does not exist yet. Existing
// tables are never altered.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect database.Dialect) error {
	if db == nil {
		return fmt.Errorf("database is required")
	}
	bdb := bun.NewDB(db, dialect.Bun())
	if _, err := bdb.NewCreateTable().Model((*userRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("ensure users table: %w", err)
	}
	return nil
}
