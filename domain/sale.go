package domain

import "github.com/shopspring/decimal"

// Sale is a recorded sales transaction. TotalPrice is fixed when the sale
// is created and never follows later price changes of the medicine.
type Sale struct {
	ID            int64           `db:"id" json:"id"`
	MedicineID    int64           `db:"medicine_id" json:"medicine_id"`
	MedicineName  string          `db:"medicine_name" json:"medicine_name"`
	SalespersonID *int64          `db:"salesperson_id" json:"salesperson_id,omitempty"`
	Salesperson   *string         `db:"salesperson" json:"salesperson"`
	Quantity      int64           `db:"quantity" json:"quantity"`
	TotalPrice    decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedAt     string          `db:"created_at" json:"created_at"`
}

// SaleTotal computes the fixed-point total for quantity units at price,
// rounded to cents.
func SaleTotal(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity)).Round(2)
}

// CheckSale rejects quantities and totals the sales ledger cannot store.
func CheckSale(quantity int64, total decimal.Decimal) error {
	switch {
	case quantity <= 0:
		return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	case quantity > MaxCount:
		return &ValidationError{Field: "quantity", Reason: "is too large"}
	case !ValidAmount(total):
		return &ValidationError{Field: "quantity", Reason: "puts the sale total out of range"}
	}
	return nil
}

// SaleReceipt is returned when a sale is recorded.
type SaleReceipt struct {
	ID             int64           `json:"id"`
	MedicineID     int64           `json:"medicine_id"`
	Quantity       int64           `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	RemainingStock int64           `json:"remaining_stock"`
}
