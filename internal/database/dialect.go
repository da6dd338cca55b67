package database

import (
	"strconv"
	"strings"

	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"myconnectionsvr/loginportal/internal/config"
)

// Dialect captures the per-driver differences the stores care about.
type Dialect struct {
	driver string
}

func DialectFor(driver string) Dialect {
	return Dialect{driver: driver}
}

func (d Dialect) Driver() string {
	return d.driver
}

func (d Dialect) numbered() bool {
	return d.driver == config.DriverPostgres || d.driver == config.DriverPGX
}

// Rebind rewrites "?" placeholders into "$1", "$2", ... for PostgreSQL
// drivers. Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.numbered() || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Bun returns the bun dialect used for DDL.
func (d Dialect) Bun() schema.Dialect {
	switch d.driver {
	case config.DriverMySQL:
		return mysqldialect.New()
	case config.DriverSQLite:
		return sqlitedialect.New()
	default:
		return pgdialect.New()
	}
}
