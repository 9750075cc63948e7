package postgres

import (
	"context"
	"fmt"
)

// Schema is idempotent and runs on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS supplier_lists (
	id            TEXT PRIMARY KEY,
	supplier_id   TEXT NOT NULL,
	name          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active',
	min_discount  NUMERIC(5,2) NOT NULL CHECK (min_discount >= 0 AND min_discount < 100),
	max_discount  NUMERIC(5,2) NOT NULL CHECK (max_discount >= min_discount AND max_discount < 100),
	min_value     BIGINT NOT NULL CHECK (min_value > 0),
	max_value     BIGINT NOT NULL CHECK (max_value > min_value),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pickup_points (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	address  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
	id                TEXT PRIMARY KEY,
	supplier_list_id  TEXT NOT NULL REFERENCES supplier_lists(id) ON DELETE RESTRICT,
	sku               TEXT,
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	brand             TEXT NOT NULL DEFAULT '',
	image_urls        TEXT[] NOT NULL DEFAULT '{}',
	price_cents       BIGINT NOT NULL CHECK (price_cents > 0),
	condition         TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	stock             INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
	available_sizes   TEXT[] NOT NULL DEFAULT '{}',
	available_colors  TEXT[] NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS products_list_idx ON products(supplier_list_id);

CREATE TABLE IF NOT EXISTS product_variants (
	id          TEXT PRIMARY KEY,
	product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	size        TEXT,
	color       TEXT,
	stock       INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
	status      TEXT NOT NULL DEFAULT 'active'
);
CREATE UNIQUE INDEX IF NOT EXISTS product_variants_pair_uq
	ON product_variants(product_id, COALESCE(size, ''), COALESCE(color, ''));

CREATE TABLE IF NOT EXISTS interests (
	id                TEXT PRIMARY KEY,
	consumer_id       TEXT NOT NULL,
	supplier_list_id  TEXT NOT NULL REFERENCES supplier_lists(id),
	pickup_point_id   TEXT NOT NULL,
	product_id        TEXT NOT NULL,
	value_cents       BIGINT NOT NULL CHECK (value_cents > 0),
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS interests_pair_idx ON interests(supplier_list_id, pickup_point_id);

CREATE TABLE IF NOT EXISTS drops (
	id                TEXT PRIMARY KEY,
	supplier_list_id  TEXT NOT NULL REFERENCES supplier_lists(id),
	pickup_point_id   TEXT NOT NULL,
	name              TEXT NOT NULL,
	status            TEXT NOT NULL,
	current_value     BIGINT NOT NULL DEFAULT 0 CHECK (current_value >= 0),
	current_discount  NUMERIC(5,2) NOT NULL DEFAULT 0,
	start_time        TIMESTAMPTZ,
	end_time          TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS drops_open_pair_uq
	ON drops(supplier_list_id, pickup_point_id)
	WHERE status IN ('pending_approval', 'approved', 'active', 'inactive');

CREATE TABLE IF NOT EXISTS bookings (
	id                         TEXT PRIMARY KEY,
	drop_id                    TEXT NOT NULL REFERENCES drops(id),
	product_id                 TEXT NOT NULL REFERENCES products(id),
	variant_id                 TEXT REFERENCES product_variants(id),
	consumer_id                TEXT NOT NULL,
	pickup_point_id            TEXT NOT NULL,
	original_price             BIGINT NOT NULL,
	discount_at_authorization  NUMERIC(5,2) NOT NULL,
	authorized_amount          BIGINT NOT NULL,
	final_price                BIGINT,
	payment_status             TEXT NOT NULL,
	payment_token              TEXT NOT NULL,
	idempotency_key            TEXT,
	created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	captured_at                TIMESTAMPTZ,
	released_at                TIMESTAMPTZ,
	CHECK (final_price IS NULL OR final_price <= authorized_amount)
);
CREATE INDEX IF NOT EXISTS bookings_drop_idx ON bookings(drop_id, payment_status);
ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_idempotency_key_key;
CREATE UNIQUE INDEX IF NOT EXISTS bookings_consumer_idem_idx ON bookings(consumer_id, idempotency_key)
	WHERE idempotency_key IS NOT NULL;

CREATE TABLE IF NOT EXISTS orders (
	id                TEXT PRIMARY KEY,
	order_number      TEXT NOT NULL UNIQUE,
	drop_id           TEXT NOT NULL UNIQUE REFERENCES drops(id),
	supplier_id       TEXT NOT NULL,
	supplier_list_id  TEXT NOT NULL,
	pickup_point_id   TEXT NOT NULL,
	status            TEXT NOT NULL,
	total_value       BIGINT NOT NULL,
	shipped_at        TIMESTAMPTZ,
	arrived_at        TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS order_items (
	id                  TEXT PRIMARY KEY,
	order_id            TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	booking_id          TEXT NOT NULL UNIQUE REFERENCES bookings(id),
	consumer_id         TEXT NOT NULL,
	product_id          TEXT NOT NULL,
	product_name        TEXT NOT NULL,
	size                TEXT,
	color               TEXT,
	price               BIGINT NOT NULL,
	pickup_status       TEXT NOT NULL DEFAULT 'pending',
	picked_up_at        TIMESTAMPTZ,
	returned_to_sender  BOOLEAN NOT NULL DEFAULT FALSE,
	return_reason       TEXT,
	returned_at         TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS profiles (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	message     TEXT NOT NULL,
	related_id  TEXT NOT NULL DEFAULT '',
	is_read     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS notifications_unread_idx ON notifications(user_id) WHERE NOT is_read;
`

func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
