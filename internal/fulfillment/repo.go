package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DB }

const orderColumns = `id, order_number, drop_id, supplier_id, supplier_list_id, pickup_point_id, status,
	total_value, shipped_at, arrived_at, completed_at, created_at, updated_at`

const itemColumns = `id, order_id, booking_id, consumer_id, product_id, product_name, COALESCE(size, ''),
	COALESCE(color, ''), price, pickup_status, picked_up_at, returned_to_sender, COALESCE(return_reason, ''), returned_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.DropID, &o.SupplierID, &o.SupplierListID, &o.PickupPointID, &status,
		&o.TotalValue, &o.ShippedAt, &o.ArrivedAt, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(status)
	return o, err
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	var status string
	err := row.Scan(&it.ID, &it.OrderID, &it.BookingID, &it.ConsumerID, &it.ProductID, &it.ProductName, &it.Size,
		&it.Color, &it.Price, &status, &it.PickedUpAt, &it.ReturnedToSender, &it.ReturnReason, &it.ReturnedAt)
	it.PickupStatus = PickupStatus(status)
	return it, err
}

// CreateOrder inserts the order and its items unless the drop already has an
// order, in which case the existing one is returned with created=false.
func (r *Repo) CreateOrder(ctx context.Context, o Order, items []Item) (Order, bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, drop_id, supplier_id, supplier_list_id, pickup_point_id, status, total_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (drop_id) DO NOTHING`,
		o.ID, o.OrderNumber, o.DropID, o.SupplierID, o.SupplierListID, o.PickupPointID, string(o.Status), o.TotalValue, o.CreatedAt)
	if err != nil {
		return Order{}, false, err
	}
	if ct.RowsAffected() == 0 {
		existing, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE drop_id = $1`, o.DropID))
		if err != nil {
			return Order{}, false, err
		}
		return existing, false, nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO order_items(id, order_id, booking_id, consumer_id, product_id, product_name, size, color, price, pickup_status)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)`,
			it.ID, o.ID, it.BookingID, it.ConsumerID, it.ProductID, it.ProductName, it.Size, it.Color, it.Price, string(it.PickupStatus))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return Order{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return o, true, nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order " + id)
	}
	return o, err
}

func (r *Repo) ListOrders(ctx context.Context, pickupPointID string, limit int) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR pickup_point_id = $1) ORDER BY created_at DESC LIMIT $2`, pickupPointID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) ListItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) GetItem(ctx context.Context, id string) (Item, error) {
	it, err := scanItem(r.DB.QueryRow(ctx, `SELECT `+itemColumns+` FROM order_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, apperr.NotFound("order item " + id)
	}
	return it, err
}

// UpdateStatus moves an order only if it is still in from.
func (r *Repo) UpdateStatus(ctx context.Context, id string, from, to Status, p Patch) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $3,
			shipped_at   = COALESCE($4, shipped_at),
			arrived_at   = COALESCE($5, arrived_at),
			completed_at = COALESCE($6, completed_at),
			updated_at   = NOW()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), p.ShippedAt, p.ArrivedAt, p.CompletedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// MarkArrived records arrival, opens the order for pickup and readies every
// pending item that was not sent back, in one transaction.
func (r *Repo) MarkArrived(ctx context.Context, id string, from Status, at time.Time) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status = 'ready_for_pickup', arrived_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, string(from), at)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE order_items SET pickup_status = 'ready'
		WHERE order_id = $1 AND pickup_status = 'pending' AND NOT returned_to_sender`, id); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *Repo) MarkPickedUp(ctx context.Context, itemID string, at time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE order_items SET pickup_status = 'picked_up', picked_up_at = $2
		WHERE id = $1 AND pickup_status = 'ready' AND NOT returned_to_sender`, itemID, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) MarkReturned(ctx context.Context, itemID, reason string, at time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE order_items SET returned_to_sender = TRUE, return_reason = $2, returned_at = $3
		WHERE id = $1 AND pickup_status <> 'picked_up' AND NOT returned_to_sender`, itemID, reason, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// CompleteIfDone completes a ready order once none of its items is still open.
func (r *Repo) CompleteIfDone(ctx context.Context, orderID string, at time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = 'completed', completed_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'ready_for_pickup'
		  AND NOT EXISTS (
			SELECT 1 FROM order_items
			WHERE order_id = $1 AND pickup_status <> 'picked_up' AND NOT returned_to_sender)`, orderID, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

type ProfileRepo struct{ DB postgres.DB }

func (r *ProfileRepo) Lookup(ctx context.Context, ids []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT id, display_name, phone FROM profiles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Phone); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}
