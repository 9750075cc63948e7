package fulfillment

import "time"

type Order struct {
	ID             string     `json:"id"`
	OrderNumber    string     `json:"order_number"`
	DropID         string     `json:"drop_id"`
	SupplierID     string     `json:"supplier_id"`
	SupplierListID string     `json:"supplier_list_id"`
	PickupPointID  string     `json:"pickup_point_id"`
	Status         Status     `json:"status"`
	TotalValue     int64      `json:"total_value"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	ArrivedAt      *time.Time `json:"arrived_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Items          []Item     `json:"items,omitempty"`
}

// Item is one captured booking inside an order. Product fields are copied at
// creation so the order reads the same after the catalog changes.
type Item struct {
	ID               string       `json:"id"`
	OrderID          string       `json:"order_id"`
	BookingID        string       `json:"booking_id"`
	ConsumerID       string       `json:"consumer_id"`
	ProductID        string       `json:"product_id"`
	ProductName      string       `json:"product_name"`
	Size             string       `json:"size,omitempty"`
	Color            string       `json:"color,omitempty"`
	Price            int64        `json:"price"`
	PickupStatus     PickupStatus `json:"pickup_status"`
	PickedUpAt       *time.Time   `json:"picked_up_at,omitempty"`
	ReturnedToSender bool         `json:"returned_to_sender"`
	ReturnReason     string       `json:"return_reason,omitempty"`
	ReturnedAt       *time.Time   `json:"returned_at,omitempty"`
}

// Terminal items are picked up or sent back; nothing moves them afterwards.
func (i Item) Terminal() bool {
	return i.PickupStatus == PickupPickedUp || i.ReturnedToSender
}

type NewItem struct {
	BookingID   string
	ConsumerID  string
	ProductID   string
	ProductName string
	Size        string
	Color       string
	Price       int64
}

type NewOrder struct {
	DropID         string
	SupplierID     string
	SupplierListID string
	PickupPointID  string
	Items          []NewItem
}

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone,omitempty"`
}

// StaffItem is an item as pickup staff see it.
type StaffItem struct {
	Item
	CustomerLabel string `json:"customer_label"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

// Patch carries the timestamps an order status change sets.
type Patch struct {
	ShippedAt   *time.Time
	ArrivedAt   *time.Time
	CompletedAt *time.Time
}
