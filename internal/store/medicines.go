package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"pharmacy/m/domain"
)

const medicineColumns = `id, name, description, manufacturer, price, stock, created_at, updated_at`

// MedicineStore is the medicine catalog.
type MedicineStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func NewMedicineStore(db *sqlx.DB, log zerolog.Logger) *MedicineStore {
	return &MedicineStore{db: db, log: log.With().Str("component", "catalog").Logger()}
}

// List returns the whole catalog, newest first.
func (s *MedicineStore) List(ctx context.Context) ([]domain.Medicine, error) {
	medicines := []domain.Medicine{}
	if err := s.db.SelectContext(ctx, &medicines, `SELECT `+medicineColumns+` FROM medicines ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, unavailable("list medicines", err)
	}
	return medicines, nil
}

func (s *MedicineStore) Get(ctx context.Context, id int64) (domain.Medicine, error) {
	var m domain.Medicine
	err := s.db.GetContext(ctx, &m, s.db.Rebind(`SELECT `+medicineColumns+` FROM medicines WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Medicine{}, fmt.Errorf("medicine %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Medicine{}, unavailable("load medicine", err)
	}
	return m, nil
}

func (s *MedicineStore) Create(ctx context.Context, f domain.MedicineFields) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(`INSERT INTO medicines (name, description, manufacturer, price, stock)
		VALUES (?, ?, ?, ?, ?) RETURNING id`), f.Name, f.Description, f.Manufacturer, f.Price, f.Stock)
	if err != nil {
		return 0, unavailable("insert medicine", err)
	}
	s.log.Info().Int64("medicine_id", id).Str("name", f.Name).Int64("stock", f.Stock).Msg("medicine created")
	return id, nil
}

// Update replaces every field of medicine id. Stock set here is an
// administrative override, independent of sales.
func (s *MedicineStore) Update(ctx context.Context, id int64, f domain.MedicineFields) error {
	if err := f.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE medicines
		SET name = ?, description = ?, manufacturer = ?, price = ?, stock = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`), f.Name, f.Description, f.Manufacturer, f.Price, f.Stock, id)
	if err != nil {
		return unavailable("update medicine", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update medicine", err)
	}
	if n == 0 {
		return fmt.Errorf("medicine %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a medicine that no sales record references. The row is
// locked before counting so no sale can slip in before the delete.
func (s *MedicineStore) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var locked int64
		err := tx.GetContext(ctx, &locked, lockRow(tx, `SELECT id FROM medicines WHERE id = ?`, "UPDATE"), id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("medicine %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return unavailable("lock medicine", err)
		}

		count, err := countSales(ctx, tx, "medicine_id", id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &domain.DependentRecordsError{Entity: "medicine", Count: count}
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM medicines WHERE id = ?`), id); err != nil {
			return unavailable("delete medicine", err)
		}
		s.log.Info().Int64("medicine_id", id).Msg("medicine deleted")
		return nil
	})
}
