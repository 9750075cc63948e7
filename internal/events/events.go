package events

import (
	"encoding/json"
	"time"
)

const (
	EventDropStatusChanged   = "DropStatusChanged"
	EventDropValueChanged    = "DropValueChanged"
	EventStockChanged        = "StockChanged"
	EventBookingAuthorized   = "BookingAuthorized"
	EventBookingCaptured     = "BookingCaptured"
	EventBookingReleased     = "BookingReleased"
	EventOrderCreated        = "OrderCreated"
	EventOrderStatusChanged  = "OrderStatusChanged"
	EventNotificationCreated = "NotificationCreated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // drop, booking or order id
	Payload       json.RawMessage `json:"payload"`
}

type DropStatusChangedPayload struct {
	DropID         string    `json:"drop_id"`
	SupplierListID string    `json:"supplier_list_id"`
	PickupPointID  string    `json:"pickup_point_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	CurrentValue   int64     `json:"current_value"`
	At             time.Time `json:"at"`
}

type DropValueChangedPayload struct {
	DropID          string  `json:"drop_id"`
	CurrentValue    int64   `json:"current_value"`
	CurrentDiscount float64 `json:"current_discount"`
}

type StockChangedPayload struct {
	SupplierListID string `json:"supplier_list_id"`
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id,omitempty"`
	Stock          int    `json:"stock"`
}

type BookingPayload struct {
	BookingID        string `json:"booking_id"`
	DropID           string `json:"drop_id"`
	ConsumerID       string `json:"consumer_id"`
	PaymentStatus    string `json:"payment_status"`
	AuthorizedAmount int64  `json:"authorized_amount"`
	FinalPrice       int64  `json:"final_price,omitempty"`
}

type OrderPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	DropID      string `json:"drop_id"`
	Status      string `json:"status"`
}

type NotificationCreatedPayload struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	RelatedID      string `json:"related_id,omitempty"`
}
