package booking

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimInput() ClaimInput {
	return ClaimInput{
		Booking: Booking{
			ID: "b1", DropID: "d1", ProductID: "p1", VariantID: "vL", ConsumerID: "c1", PickupPointID: "pp1",
			OriginalPrice: 10000, DiscountAtAuthorization: decimal.NewFromInt(30), AuthorizedAmount: 7000,
			PaymentStatus: PaymentAuthorized, PaymentToken: "tok", CreatedAt: time.Now(),
		},
		Target:   catalog.Target{ProductID: "p1", VariantID: "vL"},
		Discount: func(int64) decimal.Decimal { return decimal.NewFromInt(40) },
	}
}

func TestRepo_ClaimCommitsAllSteps(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE drops SET current_value").WithArgs("d1", int64(10000), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"current_value"}).AddRow(int64(10000)))
	mock.ExpectQuery("UPDATE product_variants SET stock = stock - 1").WithArgs("vL").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(1))
	mock.ExpectExec("UPDATE drops SET current_discount").WithArgs("d1", "40").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	dv, stock, err := (&Repo{DB: mock}).Claim(context.Background(), claimInput())
	require.NoError(t, err)
	assert.Equal(t, int64(10000), dv.CurrentValue)
	assert.Equal(t, "40", dv.CurrentDiscount.String())
	assert.Equal(t, 1, stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_ClaimWithoutStockRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE drops SET current_value").WithArgs("d1", int64(10000), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"current_value"}).AddRow(int64(10000)))
	mock.ExpectQuery("UPDATE product_variants SET stock = stock - 1").WithArgs("vL").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}))
	mock.ExpectRollback()

	_, _, err = (&Repo{DB: mock}).Claim(context.Background(), claimInput())
	assert.ErrorIs(t, err, apperr.ErrOutOfStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_ClaimOnClosedDrop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE drops SET current_value").WithArgs("d1", int64(10000), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"current_value"}))
	mock.ExpectRollback()

	_, _, err = (&Repo{DB: mock}).Claim(context.Background(), claimInput())
	assert.ErrorIs(t, err, apperr.ErrDropNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_ClaimAfterEndTimeIsRefused(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	in := claimInput()
	mock.ExpectBegin()
	mock.ExpectQuery(`end_time IS NULL OR end_time > \$3`).
		WithArgs("d1", int64(10000), in.Booking.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"current_value"}))
	mock.ExpectRollback()

	_, _, err = (&Repo{DB: mock}).Claim(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrDropNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_ReleaseIsNoOpWhenAlreadySettled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings SET payment_status").
		WithArgs("b1", "authorized", "cancelled", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	b := claimInput().Booking
	_, ok, err := (&Repo{DB: mock}).Release(context.Background(), b, PaymentCancelled, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
