package catalog

import (
	"context"

	"github.com/ariefcatur/go-groupbuy-drops/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DB }

func (r *Repo) ListRows(ctx context.Context, supplierListID string) ([]ProductRow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, supplier_list_id, COALESCE(sku, ''), name, description, brand, image_urls,
		       price_cents, condition, category, stock, available_sizes, available_colors
		FROM products WHERE supplier_list_id = $1`, supplierListID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductRow
	for rows.Next() {
		var p ProductRow
		if err := rows.Scan(&p.ID, &p.SupplierListID, &p.SKU, &p.Name, &p.Description, &p.Brand, &p.ImageURLs,
			&p.PriceCents, &p.Condition, &p.Category, &p.Stock, &p.AvailableSizes, &p.AvailableColors); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) ListVariants(ctx context.Context, productIDs []string) ([]Variant, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, COALESCE(size, ''), COALESCE(color, ''), stock, status
		FROM product_variants WHERE product_id = ANY($1)`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		var status string
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.Stock, &status); err != nil {
			return nil, err
		}
		v.Status = VariantStatus(status)
		out = append(out, v)
	}
	return out, rows.Err()
}

// InsertRows writes imported rows in one transaction.
func (r *Repo) InsertRows(ctx context.Context, rows []ProductRow) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, p := range rows {
		batch.Queue(`
			INSERT INTO products(id, supplier_list_id, sku, name, description, brand, image_urls, price_cents,
			                     condition, category, stock, available_sizes, available_colors)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			p.ID, p.SupplierListID, p.SKU, p.Name, p.Description, p.Brand, nonNil(p.ImageURLs), p.PriceCents,
			p.Condition, p.Category, p.Stock, nonNil(p.AvailableSizes), nonNil(p.AvailableColors))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
