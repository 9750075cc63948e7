package drops

import (
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/discount"
	"github.com/shopspring/decimal"
)

type ListStatus string

const (
	ListActive   ListStatus = "active"
	ListInactive ListStatus = "inactive"
)

type SupplierList struct {
	ID         string         `json:"id"`
	SupplierID string         `json:"supplier_id"`
	Name       string         `json:"name"`
	Status     ListStatus     `json:"status"`
	Range      discount.Range `json:"range"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Drop is a time-boxed discount event for one supplier list at one pickup point.
type Drop struct {
	ID              string          `json:"id"`
	SupplierListID  string          `json:"supplier_list_id"`
	PickupPointID   string          `json:"pickup_point_id"`
	Name            string          `json:"name"`
	Status          Status          `json:"status"`
	CurrentValue    int64           `json:"current_value"`
	CurrentDiscount decimal.Decimal `json:"current_discount"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Interest struct {
	ID             string    `json:"id"`
	ConsumerID     string    `json:"consumer_id"`
	SupplierListID string    `json:"supplier_list_id"`
	PickupPointID  string    `json:"pickup_point_id"`
	ProductID      string    `json:"product_id"`
	ValueCents     int64     `json:"value_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

// Patch carries the timestamps a status change sets. Nil fields are left alone.
type Patch struct {
	StartTime   *time.Time
	EndTime     *time.Time
	CompletedAt *time.Time
}

// View is what consumers see for a drop.
type View struct {
	Drop      Drop            `json:"drop"`
	List      SupplierList    `json:"list"`
	Discount  decimal.Decimal `json:"discount"`
	Progress  decimal.Decimal `json:"progress"`
	Remaining time.Duration   `json:"remaining_ns"`
}
