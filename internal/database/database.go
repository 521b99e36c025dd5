package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

func init() {
	// sqlx does not know modernc's driver name; queries are written with ? and rebound.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// sqlitePragmas are applied by the driver to every new SQLite connection.
var sqlitePragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// Connect opens and pings a connection pool for the given driver.
func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		dsn = withPragmas(dsn)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	switch driver {
	case DriverSQLite:
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

func withPragmas(dsn string) string {
	for _, p := range sqlitePragmas {
		param := "_pragma=" + p
		if strings.Contains(dsn, param) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + param
	}
	return dsn
}
