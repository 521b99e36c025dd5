// Package store holds the SQL-backed credential store, catalog and sales
// ledger. Queries are written with ? placeholders and rebound per driver.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmacy/m/domain"
	"pharmacy/m/internal/database"
)

// unavailable marks an unexpected database failure.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrDatabaseUnavailable, err)
}

// withTx runs fn inside a transaction and commits only if fn succeeds.
// Any error rolls the whole unit of work back.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

func countSales(ctx context.Context, tx *sqlx.Tx, column string, id int64) (int64, error) {
	var count int64
	query := tx.Rebind(`SELECT COUNT(*) FROM sales_records WHERE ` + column + ` = ?`)
	if err := tx.GetContext(ctx, &count, query, id); err != nil {
		return 0, unavailable("count sales records", err)
	}
	return count, nil
}

// lockRow appends a row lock of the given strength ("UPDATE" or "SHARE") on
// Postgres. SQLite takes a database-wide write lock instead and has no
// row locking clause.
func lockRow(tx *sqlx.Tx, query, strength string) string {
	if tx.DriverName() == database.DriverPostgres {
		query += " FOR " + strength
	}
	return tx.Rebind(query)
}
