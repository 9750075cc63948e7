package drops

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_CreateIfNoneOpen(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	r := &Repo{DB: mock}

	d := Drop{ID: "d1", SupplierListID: "l1", PickupPointID: "pp1", Name: "n",
		Status: StatusPendingApproval, CurrentDiscount: decimal.NewFromInt(30)}

	mock.ExpectExec("INSERT INTO drops").
		WithArgs("d1", "l1", "pp1", "n", "pending_approval", "30").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO drops").
		WithArgs("d1", "l1", "pp1", "n", "pending_approval", "30").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := r.CreateIfNoneOpen(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.CreateIfNoneOpen(context.Background(), d)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_UpdateStatusIsConditional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	r := &Repo{DB: mock}

	mock.ExpectExec("UPDATE drops SET status").
		WithArgs("d1", "active", "inactive", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := r.UpdateStatus(context.Background(), "d1", StatusActive, StatusInactive, Patch{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_CloseOutDecidesFromRowValue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	r := &Repo{DB: mock}

	now := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)
	start, end := now.Add(-48*time.Hour), now.Add(-time.Minute)
	cols := []string{"id", "supplier_list_id", "pickup_point_id", "name", "status", "current_value",
		"current_discount", "start_time", "end_time", "completed_at", "created_at", "updated_at"}

	mock.ExpectQuery("UPDATE drops SET").
		WithArgs("d1", int64(5000), now).
		WillReturnRows(pgxmock.NewRows(cols).AddRow("d1", "l1", "pp1", "n", "completed", int64(6000),
			float64(36), &start, &end, &now, start, now))
	mock.ExpectQuery("UPDATE drops SET").
		WithArgs("d1", int64(5000), now).
		WillReturnRows(pgxmock.NewRows(cols))

	d, ok, err := r.CloseOut(context.Background(), "d1", 5000, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StatusCompleted, d.Status)
	assert.Equal(t, int64(6000), d.CurrentValue)

	_, ok, err = r.CloseOut(context.Background(), "d1", 5000, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
