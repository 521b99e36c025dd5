package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pharmacy/m/domain"
)

const saleSelect = `SELECT s.id, s.medicine_id, m.name AS medicine_name, s.salesperson_id, u.username AS salesperson,
		s.quantity, s.total_price, s.created_at
	FROM sales_records s
	JOIN medicines m ON m.id = s.medicine_id
	LEFT JOIN users u ON u.id = s.salesperson_id`

// SaleStore is the sales ledger. It is the only writer of sale-driven stock
// changes, and every change happens in the same transaction as the record.
type SaleStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func NewSaleStore(db *sqlx.DB, log zerolog.Logger) *SaleStore {
	return &SaleStore{db: db, log: log.With().Str("component", "ledger").Logger()}
}

// Create records a sale of quantity units and decrements the medicine's
// stock. The stock check and the decrement are one conditional UPDATE, so
// concurrent sales can never oversell.
func (s *SaleStore) Create(ctx context.Context, medicineID, quantity, salespersonID int64) (domain.SaleReceipt, error) {
	if err := domain.CheckSale(quantity, decimal.Zero); err != nil {
		return domain.SaleReceipt{}, err
	}

	receipt := domain.SaleReceipt{MedicineID: medicineID, Quantity: quantity}
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		// The shared lock keeps the salesperson from being deleted until commit.
		var seller int64
		err := tx.GetContext(ctx, &seller, lockRow(tx, `SELECT id FROM users WHERE id = ?`, "SHARE"), salespersonID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("salesperson %d: %w", salespersonID, domain.ErrNotFound)
		}
		if err != nil {
			return unavailable("load salesperson", err)
		}

		var row struct {
			Price decimal.Decimal `db:"price"`
			Stock int64           `db:"stock"`
		}
		err = tx.GetContext(ctx, &row, tx.Rebind(`UPDATE medicines
			SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
			RETURNING price, stock`), quantity, medicineID, quantity)
		if errors.Is(err, sql.ErrNoRows) {
			return s.explainRejectedSale(ctx, tx, medicineID, quantity)
		}
		if err != nil {
			return unavailable("decrement stock", err)
		}

		// Price is read in the same statement that takes the row, so the
		// total reflects the price at the moment of sale.
		receipt.TotalPrice = domain.SaleTotal(row.Price, quantity)
		receipt.RemainingStock = row.Stock
		if err := domain.CheckSale(quantity, receipt.TotalPrice); err != nil {
			return err
		}

		err = tx.GetContext(ctx, &receipt.ID, tx.Rebind(`INSERT INTO sales_records (medicine_id, salesperson_id, quantity, total_price)
			VALUES (?, ?, ?, ?) RETURNING id`), medicineID, salespersonID, quantity, receipt.TotalPrice)
		if err != nil {
			return unavailable("insert sales record", err)
		}
		return nil
	})
	if err != nil {
		return domain.SaleReceipt{}, err
	}

	s.log.Info().
		Int64("sale_id", receipt.ID).
		Int64("medicine_id", medicineID).
		Int64("quantity", quantity).
		Str("total_price", receipt.TotalPrice.StringFixed(2)).
		Int64("salesperson_id", salespersonID).
		Msg("sale recorded")
	return receipt, nil
}

func (s *SaleStore) explainRejectedSale(ctx context.Context, tx *sqlx.Tx, medicineID, quantity int64) error {
	var stock int64
	err := tx.GetContext(ctx, &stock, tx.Rebind(`SELECT stock FROM medicines WHERE id = ?`), medicineID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("medicine %d: %w", medicineID, domain.ErrNotFound)
	}
	if err != nil {
		return unavailable("load medicine stock", err)
	}
	return fmt.Errorf("requested %d, available %d: %w", quantity, stock, domain.ErrInsufficientStock)
}

// Delete removes a sale and returns its quantity to the medicine's stock.
// The restore is additive, so it is the exact inverse of Create no matter
// what happened to the stock in between.
func (s *SaleStore) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var sale struct {
			MedicineID int64 `db:"medicine_id"`
			Quantity   int64 `db:"quantity"`
		}
		err := tx.GetContext(ctx, &sale, tx.Rebind(`DELETE FROM sales_records WHERE id = ? RETURNING medicine_id, quantity`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sale %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return unavailable("delete sales record", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE medicines
			SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`), sale.Quantity, sale.MedicineID); err != nil {
			return unavailable("restore stock", err)
		}
		s.log.Info().Int64("sale_id", id).Int64("medicine_id", sale.MedicineID).Int64("restored", sale.Quantity).Msg("sale deleted")
		return nil
	})
}

// List returns all sales newest first. Salesperson is nil when the user
// no longer exists.
func (s *SaleStore) List(ctx context.Context) ([]domain.Sale, error) {
	sales := []domain.Sale{}
	if err := s.db.SelectContext(ctx, &sales, saleSelect+` ORDER BY s.created_at DESC, s.id DESC`); err != nil {
		return nil, unavailable("list sales", err)
	}
	return sales, nil
}

func (s *SaleStore) Get(ctx context.Context, id int64) (domain.Sale, error) {
	var sale domain.Sale
	err := s.db.GetContext(ctx, &sale, s.db.Rebind(saleSelect+` WHERE s.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, fmt.Errorf("sale %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Sale{}, unavailable("load sale", err)
	}
	return sale, nil
}
