package drops

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

const dropColumns = `id, supplier_list_id, pickup_point_id, name, status, current_value,
	current_discount::float8, start_time, end_time, completed_at, created_at, updated_at`

func scanDrop(row pgx.Row) (Drop, error) {
	var d Drop
	var status string
	var disc float64
	err := row.Scan(&d.ID, &d.SupplierListID, &d.PickupPointID, &d.Name, &status, &d.CurrentValue,
		&disc, &d.StartTime, &d.EndTime, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Drop{}, err
	}
	d.Status = Status(status)
	d.CurrentDiscount = decimal.NewFromFloat(disc)
	return d, nil
}

func (r *Repo) CreateList(ctx context.Context, l SupplierList) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO supplier_lists(id, supplier_id, name, status, min_discount, max_discount, min_value, max_value)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8)`,
		l.ID, l.SupplierID, l.Name, string(l.Status),
		l.Range.MinDiscount.String(), l.Range.MaxDiscount.String(), l.Range.MinValue, l.Range.MaxValue)
	return err
}

func (r *Repo) GetList(ctx context.Context, id string) (SupplierList, error) {
	var l SupplierList
	var status string
	var minD, maxD float64
	err := r.DB.QueryRow(ctx, `
		SELECT id, supplier_id, name, status, min_discount::float8, max_discount::float8, min_value, max_value, created_at
		FROM supplier_lists WHERE id = $1`, id).
		Scan(&l.ID, &l.SupplierID, &l.Name, &status, &minD, &maxD, &l.Range.MinValue, &l.Range.MaxValue, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SupplierList{}, apperr.NotFound("supplier list " + id)
	}
	if err != nil {
		return SupplierList{}, err
	}
	l.Status = ListStatus(status)
	l.Range.MinDiscount = decimal.NewFromFloat(minD)
	l.Range.MaxDiscount = decimal.NewFromFloat(maxD)
	return l, nil
}

func (r *Repo) SetListStatus(ctx context.Context, id string, status ListStatus) error {
	ct, err := r.DB.Exec(ctx, `UPDATE supplier_lists SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("supplier list " + id)
	}
	return nil
}

func (r *Repo) InsertInterest(ctx context.Context, in Interest) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO interests(id, consumer_id, supplier_list_id, pickup_point_id, product_id, value_cents)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		in.ID, in.ConsumerID, in.SupplierListID, in.PickupPointID, in.ProductID, in.ValueCents)
	return err
}

func (r *Repo) InterestTotal(ctx context.Context, supplierListID, pickupPointID string) (int64, error) {
	var total int64
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(value_cents), 0)::bigint FROM interests
		WHERE supplier_list_id = $1 AND pickup_point_id = $2`, supplierListID, pickupPointID).Scan(&total)
	return total, err
}

// CreateIfNoneOpen inserts d unless the pair already has an open drop. The
// partial unique index drops_open_pair_uq makes the check and insert one step.
func (r *Repo) CreateIfNoneOpen(ctx context.Context, d Drop) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO drops(id, supplier_list_id, pickup_point_id, name, status, current_value, current_discount)
		VALUES ($1, $2, $3, $4, $5, 0, $6::numeric)
		ON CONFLICT (supplier_list_id, pickup_point_id)
			WHERE status IN ('pending_approval', 'approved', 'active', 'inactive')
		DO NOTHING`,
		d.ID, d.SupplierListID, d.PickupPointID, d.Name, string(d.Status), d.CurrentDiscount.String())
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) OpenForPair(ctx context.Context, supplierListID, pickupPointID string) (Drop, error) {
	d, err := scanDrop(r.DB.QueryRow(ctx, `SELECT `+dropColumns+` FROM drops
		WHERE supplier_list_id = $1 AND pickup_point_id = $2
		  AND status IN ('pending_approval', 'approved', 'active', 'inactive')`, supplierListID, pickupPointID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Drop{}, apperr.NotFound("open drop")
	}
	return d, err
}

func (r *Repo) GetDrop(ctx context.Context, id string) (Drop, error) {
	d, err := scanDrop(r.DB.QueryRow(ctx, `SELECT `+dropColumns+` FROM drops WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Drop{}, apperr.NotFound("drop " + id)
	}
	return d, err
}

// UpdateStatus moves a drop only if it is still in from. It reports false when
// another writer got there first.
func (r *Repo) UpdateStatus(ctx context.Context, id string, from, to Status, p Patch) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE drops SET status = $3,
			start_time   = COALESCE($4, start_time),
			end_time     = COALESCE($5, end_time),
			completed_at = COALESCE($6, completed_at),
			updated_at   = NOW()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), p.StartTime, p.EndTime, p.CompletedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// CloseOut ends an active drop whose end time has passed. The outcome is read
// from the row being updated, so a claim that committed after the caller's
// snapshot still counts. ok is false when the drop was already moved.
func (r *Repo) CloseOut(ctx context.Context, id string, minValue int64, now time.Time) (Drop, bool, error) {
	d, err := scanDrop(r.DB.QueryRow(ctx, `
		UPDATE drops SET
			status       = CASE WHEN current_value >= $2 THEN 'completed' ELSE 'expired' END,
			completed_at = CASE WHEN current_value >= $2 THEN $3::timestamptz ELSE completed_at END,
			updated_at   = NOW()
		WHERE id = $1 AND status = 'active' AND end_time <= $3
		RETURNING `+dropColumns, id, minValue, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Drop{}, false, nil
	}
	if err != nil {
		return Drop{}, false, err
	}
	return d, true, nil
}

// ListDue returns approved drops whose start passed and active drops whose end passed.
func (r *Repo) ListDue(ctx context.Context, now time.Time) ([]Drop, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+dropColumns+` FROM drops
		WHERE (status = 'approved' AND start_time <= $1)
		   OR (status = 'active' AND end_time <= $1)
		ORDER BY end_time NULLS LAST, id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Drop
	for rows.Next() {
		d, err := scanDrop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
