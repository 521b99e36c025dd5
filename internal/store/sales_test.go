package store

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy/m/domain"
	"pharmacy/m/internal/testutil"
)

type ledgerFixture struct {
	db        *sqlx.DB
	users     *UserStore
	medicines *MedicineStore
	sales     *SaleStore
	clerk     int64
}

func newLedgerFixture(t *testing.T) ledgerFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := ledgerFixture{
		db:        db,
		users:     NewUserStore(db, zerolog.Nop()),
		medicines: NewMedicineStore(db, zerolog.Nop()),
		sales:     NewSaleStore(db, zerolog.Nop()),
	}
	var err error
	f.clerk, err = f.users.Create(context.Background(), "clerk", "pw", domain.RoleStaff)
	require.NoError(t, err)
	return f
}

func (f ledgerFixture) stock(t *testing.T, id int64) int64 {
	t.Helper()
	m, err := f.medicines.Get(context.Background(), id)
	require.NoError(t, err)
	return m.Stock
}

func TestSaleStoreCreateComputesTotalAndDecrementsStock(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Amoxicillin", "15.8", 100))
	require.NoError(t, err)

	receipt, err := f.sales.Create(ctx, medID, 3, f.clerk)
	require.NoError(t, err)
	assert.Positive(t, receipt.ID)
	assert.Equal(t, "47.40", receipt.TotalPrice.StringFixed(2))
	assert.EqualValues(t, 97, receipt.RemainingStock)
	assert.EqualValues(t, 97, f.stock(t, medID))

	sale, err := f.sales.Get(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin", sale.MedicineName)
	require.NotNil(t, sale.Salesperson)
	assert.Equal(t, "clerk", *sale.Salesperson)
	assert.EqualValues(t, 3, sale.Quantity)
	assert.True(t, sale.TotalPrice.Equal(decimal.RequireFromString("47.40")))
}

func TestSaleStoreCreateRejections(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Ibuprofen", "12.5", 2))
	require.NoError(t, err)

	_, err = f.sales.Create(ctx, medID, 3, f.clerk)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.sales.Create(ctx, medID+50, 1, f.clerk)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.sales.Create(ctx, medID, 0, f.clerk)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.sales.Create(ctx, medID, -4, f.clerk)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.EqualValues(t, 2, f.stock(t, medID))
	list, err := f.sales.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Selling the exact remaining stock is allowed.
	receipt, err := f.sales.Create(ctx, medID, 2, f.clerk)
	require.NoError(t, err)
	assert.Zero(t, receipt.RemainingStock)
}

func TestSaleStoreDeleteIsInverseOfCreate(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Cold Granules", "25", 80))
	require.NoError(t, err)

	first, err := f.sales.Create(ctx, medID, 5, f.clerk)
	require.NoError(t, err)
	_, err = f.sales.Create(ctx, medID, 7, f.clerk)
	require.NoError(t, err)
	assert.EqualValues(t, 68, f.stock(t, medID))

	require.NoError(t, f.sales.Delete(ctx, first.ID))
	assert.EqualValues(t, 73, f.stock(t, medID))

	_, err = f.sales.Get(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.sales.Delete(ctx, first.ID), domain.ErrNotFound)
	assert.EqualValues(t, 73, f.stock(t, medID))
}

func TestSaleStoreDeleteRestoresAfterAdministrativeOverride(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Vitamin C", "18.5", 10))
	require.NoError(t, err)
	receipt, err := f.sales.Create(ctx, medID, 4, f.clerk)
	require.NoError(t, err)

	require.NoError(t, f.medicines.Update(ctx, medID, testutil.Medicine("Vitamin C", "18.5", 1)))
	require.NoError(t, f.sales.Delete(ctx, receipt.ID))
	assert.EqualValues(t, 5, f.stock(t, medID))
}

func TestSaleStoreTotalIgnoresLaterPriceChanges(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Isatis Root", "22", 120))
	require.NoError(t, err)
	receipt, err := f.sales.Create(ctx, medID, 2, f.clerk)
	require.NoError(t, err)

	require.NoError(t, f.medicines.Update(ctx, medID, testutil.Medicine("Isatis Root", "99.99", 118)))

	sale, err := f.sales.Get(ctx, receipt.ID)
	require.NoError(t, err)
	assert.True(t, sale.TotalPrice.Equal(decimal.NewFromInt(44)), sale.TotalPrice.String())

	next, err := f.sales.Create(ctx, medID, 1, f.clerk)
	require.NoError(t, err)
	assert.Equal(t, "99.99", next.TotalPrice.StringFixed(2))
}

func TestSaleStoreConcurrentSalesNeverOversell(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Band-Aid", "15", 5))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sales.Create(ctx, medID, 3, f.clerk)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.EqualValues(t, 2, f.stock(t, medID))
}

func TestSaleStoreRandomSequenceKeepsStockNonNegative(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	const initial = 40
	medID, err := f.medicines.Create(ctx, testutil.Medicine("Honeysuckle Dew", "12", initial))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	var sold int64
	for i := 0; i < 60; i++ {
		q := int64(rng.Intn(6) + 1)
		_, err := f.sales.Create(ctx, medID, q, f.clerk)
		if err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
			continue
		}
		sold += q
	}

	assert.LessOrEqual(t, sold, int64(initial))
	stock := f.stock(t, medID)
	assert.GreaterOrEqual(t, stock, int64(0))
	assert.Equal(t, int64(initial)-sold, stock)
}

func TestSaleStoreListLeftJoinsSalesperson(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Salvia Tablets", "28.5", 80))
	require.NoError(t, err)
	ghost, err := f.users.Create(ctx, "ghost", "pw", domain.RoleStaff)
	require.NoError(t, err)

	_, err = f.sales.Create(ctx, medID, 1, f.clerk)
	require.NoError(t, err)
	second, err := f.sales.Create(ctx, medID, 2, ghost)
	require.NoError(t, err)

	// Bypass the application guard to simulate a salesperson removed out of band.
	_, err = f.db.Exec(`PRAGMA foreign_keys = OFF`)
	require.NoError(t, err)
	_, err = f.db.Exec(`DELETE FROM users WHERE id = ?`, ghost)
	require.NoError(t, err)

	list, err := f.sales.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Nil(t, list[0].Salesperson)
	require.NotNil(t, list[1].Salesperson)
	assert.Equal(t, "clerk", *list[1].Salesperson)
	assert.Equal(t, "Salvia Tablets", list[0].MedicineName)
}

func TestSaleStoreCreateRollsBackWhenInsertFails(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	sales := NewSaleStore(sqlx.NewDb(mockDB, "pgx"), zerolog.Nop())

	mock.ExpectBegin()
	expectSalesperson(mock, 9)
	mock.ExpectQuery(`UPDATE medicines SET stock = stock - \$1`).
		WithArgs(int64(3), int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"price", "stock"}).AddRow("15.80", int64(97)))
	mock.ExpectQuery(`INSERT INTO sales_records`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = sales.Create(context.Background(), 1, 3, 9)
	assert.ErrorIs(t, err, domain.ErrDatabaseUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleStoreDeleteRollsBackWhenRestoreFails(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	sales := NewSaleStore(sqlx.NewDb(mockDB, "pgx"), zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM sales_records WHERE id = \$1 RETURNING medicine_id, quantity`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"medicine_id", "quantity"}).AddRow(int64(1), int64(3)))
	mock.ExpectExec(`UPDATE medicines SET stock = stock \+ \$1`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = sales.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrDatabaseUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectSalesperson(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR SHARE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

// The stock check must live in the decrement itself: a sale that loses the
// race sees zero rows from the conditional UPDATE and writes nothing else.
func TestSaleStoreCreateChecksStockInTheDecrement(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	sales := NewSaleStore(sqlx.NewDb(mockDB, "pgx"), zerolog.Nop())

	mock.ExpectBegin()
	expectSalesperson(mock, 9)
	mock.ExpectQuery(`UPDATE medicines SET stock = stock - \$1, updated_at = CURRENT_TIMESTAMP ` +
		`WHERE id = \$2 AND stock >= \$3 RETURNING price, stock`).
		WithArgs(int64(3), int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"price", "stock"}))
	mock.ExpectQuery(`SELECT stock FROM medicines WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(int64(2)))
	mock.ExpectRollback()

	_, err = sales.Create(context.Background(), 1, 3, 9)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.ErrorContains(t, err, "requested 3, available 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleStoreCreateRejectsDeletedSalesperson(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Erythromycin Ointment", "8.5", 5))
	require.NoError(t, err)
	gone, err := f.users.Create(ctx, "gone", "pw", domain.RoleStaff)
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(ctx, gone, f.clerk))

	_, err = f.sales.Create(ctx, medID, 1, gone)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualValues(t, 5, f.stock(t, medID))

	list, err := f.sales.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaleStoreCreateRejectsOutOfRangeSales(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	medID, err := f.medicines.Create(ctx, testutil.Medicine("Gold Leaf Tonic", "99999999.99", 10))
	require.NoError(t, err)

	_, err = f.sales.Create(ctx, medID, 2, f.clerk)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualValues(t, 10, f.stock(t, medID))

	_, err = f.sales.Create(ctx, medID, domain.MaxCount+1, f.clerk)
	assert.ErrorIs(t, err, domain.ErrValidation)

	receipt, err := f.sales.Create(ctx, medID, 1, f.clerk)
	require.NoError(t, err)
	assert.Equal(t, "99999999.99", receipt.TotalPrice.StringFixed(2))
}
