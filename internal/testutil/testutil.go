// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pharmacy/m/domain"
	"pharmacy/m/internal/database"
	"pharmacy/m/internal/migrations"
)

// NewDB returns a migrated in-memory SQLite pool closed at test cleanup.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Connect(ctx, database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(ctx, db))
	return db
}

// Medicine returns valid catalog fields with the given price and stock.
func Medicine(name, price string, stock int64) domain.MedicineFields {
	return domain.MedicineFields{
		Name:         name,
		Description:  "0.25g x 24 capsules",
		Manufacturer: "Harbin Pharmaceutical",
		Price:        decimal.RequireFromString(price),
		Stock:        stock,
	}
}
