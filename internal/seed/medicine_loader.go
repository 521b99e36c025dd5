package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pharmacy/m/domain"
)

// catalogColumns is the expected CSV header.
var catalogColumns = []string{"name", "description", "manufacturer", "price", "stock"}

// LoadMedicinesFile opens path and loads it with LoadMedicines.
func LoadMedicinesFile(ctx context.Context, db *sqlx.DB, path string, log zerolog.Logger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open medicine catalog %s: %w", path, err)
	}
	defer file.Close()
	return LoadMedicines(ctx, db, file, log)
}

// LoadMedicines ingests a name,description,manufacturer,price,stock CSV into
// an empty catalog. A catalog that already holds medicines is left untouched.
// Invalid rows are logged and skipped. It returns the number of rows inserted.
func LoadMedicines(ctx context.Context, db *sqlx.DB, r io.Reader, log zerolog.Logger) (int, error) {
	var existing int64
	if err := db.GetContext(ctx, &existing, `SELECT COUNT(*) FROM medicines`); err != nil {
		return 0, fmt.Errorf("count medicines: %w", err)
	}
	if existing > 0 {
		log.Debug().Int64("medicines", existing).Msg("catalog already populated, skipping seed")
		return 0, nil
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read medicine header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return 0, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin medicine seed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		`INSERT INTO medicines (name, description, manufacturer, price, stock) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare medicine insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("unreadable medicine row")
			continue
		}
		fields, err := parseMedicine(record)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping medicine row")
			continue
		}
		if _, err := stmt.ExecContext(ctx, fields.Name, fields.Description, fields.Manufacturer, fields.Price, fields.Stock); err != nil {
			return 0, fmt.Errorf("insert medicine %q: %w", fields.Name, err)
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit medicine seed: %w", err)
	}
	log.Info().Int("rows", rows).Msg("seeded medicine catalog")
	return rows, nil
}

func checkHeader(header []string) error {
	if len(header) < len(catalogColumns) {
		return fmt.Errorf("medicine header has %d columns, want %d", len(header), len(catalogColumns))
	}
	for i, want := range catalogColumns {
		if got := strings.ToLower(strings.TrimSpace(header[i])); got != want {
			return fmt.Errorf("medicine header column %d is %q, want %q", i+1, got, want)
		}
	}
	return nil
}

func parseMedicine(record []string) (domain.MedicineFields, error) {
	if len(record) < len(catalogColumns) {
		return domain.MedicineFields{}, fmt.Errorf("expected %d columns, got %d", len(catalogColumns), len(record))
	}
	price, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return domain.MedicineFields{}, &domain.ValidationError{Field: "price", Reason: "is not a number"}
	}
	stock, err := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)
	if err != nil {
		return domain.MedicineFields{}, &domain.ValidationError{Field: "stock", Reason: "is not an integer"}
	}
	fields := domain.MedicineFields{
		Name:         strings.TrimSpace(record[0]),
		Description:  strings.TrimSpace(record[1]),
		Manufacturer: strings.TrimSpace(record[2]),
		Price:        price,
		Stock:        stock,
	}
	return fields, fields.Validate()
}
