package redisx

import "time"

const (
	// Claim idempotency: idem:claim:{consumer_id}:{idempotency_key} -> booking_id
	KeyIdemClaim = "idem:claim:%s"

	// Aggregated catalog of a supplier list: catalog:{supplier_list_id} -> JSON []SellableUnit
	KeyCatalog = "catalog:%s"

	// Drop view cache: drop_view:{drop_id} -> JSON
	KeyDropView = "drop_view:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDropView    = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
