package booking

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB postgres.DB }

const bookingColumns = `id, drop_id, product_id, COALESCE(variant_id, ''), consumer_id, pickup_point_id,
	original_price, discount_at_authorization::float8, authorized_amount, final_price, payment_status,
	payment_token, COALESCE(idempotency_key, ''), created_at, captured_at, released_at`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	var disc float64
	var status string
	err := row.Scan(&b.ID, &b.DropID, &b.ProductID, &b.VariantID, &b.ConsumerID, &b.PickupPointID,
		&b.OriginalPrice, &disc, &b.AuthorizedAmount, &b.FinalPrice, &status,
		&b.PaymentToken, &b.IdempotencyKey, &b.CreatedAt, &b.CapturedAt, &b.ReleasedAt)
	if err != nil {
		return Booking{}, err
	}
	b.DiscountAtAuthorization = decimal.NewFromFloat(disc)
	b.PaymentStatus = PaymentStatus(status)
	return b, nil
}

// Claim applies a claim in one transaction. The drop row is bumped first so
// claims on the same drop serialize on its row lock and commit in order, and a
// drop whose end time has passed takes no more claims even before it is closed. The
// stock decrement is a single conditional update; no row means the last unit
// is gone and nothing is applied.
func (r *Repo) Claim(ctx context.Context, in ClaimInput) (DropValue, int, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return DropValue{}, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b := in.Booking
	var value int64
	err = tx.QueryRow(ctx, `
		UPDATE drops SET current_value = current_value + $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND (end_time IS NULL OR end_time > $3)
		RETURNING current_value`, b.DropID, b.OriginalPrice, b.CreatedAt).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return DropValue{}, 0, apperr.ErrDropNotActive
	}
	if err != nil {
		return DropValue{}, 0, err
	}

	var stock int
	if in.Target.VariantID != "" {
		err = tx.QueryRow(ctx, `
			UPDATE product_variants SET stock = stock - 1
			WHERE id = $1 AND status = 'active' AND stock > 0
			RETURNING stock`, in.Target.VariantID).Scan(&stock)
	} else {
		err = tx.QueryRow(ctx, `
			UPDATE products SET stock = stock - 1, updated_at = NOW()
			WHERE id = $1 AND stock > 0
			RETURNING stock`, in.Target.ProductID).Scan(&stock)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return DropValue{}, 0, apperr.ErrOutOfStock
	}
	if err != nil {
		return DropValue{}, 0, err
	}

	disc := in.Discount(value)
	if _, err := tx.Exec(ctx, `UPDATE drops SET current_discount = $2::numeric WHERE id = $1`,
		b.DropID, disc.String()); err != nil {
		return DropValue{}, 0, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO bookings(id, drop_id, product_id, variant_id, consumer_id, pickup_point_id,
		                     original_price, discount_at_authorization, authorized_amount,
		                     payment_status, payment_token, idempotency_key, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8::numeric, $9, $10, $11, NULLIF($12, ''), $13)`,
		b.ID, b.DropID, b.ProductID, b.VariantID, b.ConsumerID, b.PickupPointID,
		b.OriginalPrice, b.DiscountAtAuthorization.String(), b.AuthorizedAmount,
		string(b.PaymentStatus), b.PaymentToken, b.IdempotencyKey, b.CreatedAt); err != nil {
		return DropValue{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return DropValue{}, 0, err
	}
	return DropValue{CurrentValue: value, CurrentDiscount: disc}, stock, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Booking, error) {
	b, err := scanBooking(r.DB.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, apperr.NotFound("booking " + id)
	}
	return b, err
}

func (r *Repo) ListByDrop(ctx context.Context, dropID string, status PaymentStatus) ([]Booking, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE drop_id = $1 AND payment_status = $2 ORDER BY created_at, id`, dropID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkCaptured fixes the final price. It reports false when the booking was
// no longer authorized.
func (r *Repo) MarkCaptured(ctx context.Context, id string, finalPrice int64, at time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE bookings SET payment_status = 'captured', final_price = $2, captured_at = $3
		WHERE id = $1 AND payment_status = 'authorized' AND $2 <= authorized_amount`,
		id, finalPrice, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Release settles the booking as to and puts its unit back in stock, both in
// one transaction. It reports false when the booking had already left from.
func (r *Repo) Release(ctx context.Context, b Booking, to PaymentStatus, at time.Time) (int, bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE bookings SET payment_status = $3, released_at = $4
		WHERE id = $1 AND payment_status = $2`,
		b.ID, string(b.PaymentStatus), string(to), at)
	if err != nil {
		return 0, false, err
	}
	if ct.RowsAffected() == 0 {
		return 0, false, nil
	}

	var stock int
	if b.VariantID != "" {
		err = tx.QueryRow(ctx, `UPDATE product_variants SET stock = stock + 1 WHERE id = $1 RETURNING stock`,
			b.VariantID).Scan(&stock)
	} else {
		err = tx.QueryRow(ctx, `UPDATE products SET stock = stock + 1, updated_at = NOW() WHERE id = $1 RETURNING stock`,
			b.ProductID).Scan(&stock)
	}
	if err != nil {
		return 0, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	return stock, true, nil
}
