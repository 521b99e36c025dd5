package domain

import "github.com/shopspring/decimal"

type Medicine struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Manufacturer string          `db:"manufacturer" json:"manufacturer"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Stock        int64           `db:"stock" json:"stock"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	UpdatedAt    string          `db:"updated_at" json:"updated_at"`
}

// MedicineFields is the full replacement payload for a medicine.
type MedicineFields struct {
	Name         string
	Description  string
	Manufacturer string
	Price        decimal.Decimal
	Stock        int64
}

// Validate checks the catalog invariants shared by create and update.
func (f MedicineFields) Validate() error {
	for _, text := range []struct{ field, value string }{
		{"name", f.Name},
		{"description", f.Description},
		{"manufacturer", f.Manufacturer},
	} {
		if text.value == "" {
			return &ValidationError{Field: text.field, Reason: "is required"}
		}
		if tooLong(text.value) {
			return &ValidationError{Field: text.field, Reason: "must be at most 100 characters"}
		}
	}
	switch {
	case f.Price.IsNegative():
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	case !ValidAmount(f.Price):
		return &ValidationError{Field: "price", Reason: "must be below 100000000 with at most 2 decimals"}
	case f.Stock < 0:
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	case f.Stock > MaxCount:
		return &ValidationError{Field: "stock", Reason: "is too large"}
	}
	return nil
}
