package booking

import (
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// Settled bookings hold no stock and no open authorization.
func (s PaymentStatus) Settled() bool {
	return s == PaymentRefunded || s == PaymentCancelled
}

type Booking struct {
	ID                      string          `json:"id"`
	DropID                  string          `json:"drop_id"`
	ProductID               string          `json:"product_id"`
	VariantID               string          `json:"variant_id,omitempty"`
	ConsumerID              string          `json:"consumer_id"`
	PickupPointID           string          `json:"pickup_point_id"`
	OriginalPrice           int64           `json:"original_price"`
	DiscountAtAuthorization decimal.Decimal `json:"discount_at_authorization"`
	AuthorizedAmount        int64           `json:"authorized_amount"`
	FinalPrice              *int64          `json:"final_price,omitempty"`
	PaymentStatus           PaymentStatus   `json:"payment_status"`
	PaymentToken            string          `json:"-"`
	IdempotencyKey          string          `json:"idempotency_key,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	CapturedAt              *time.Time      `json:"captured_at,omitempty"`
	ReleasedAt              *time.Time      `json:"released_at,omitempty"`
}

type ClaimRequest struct {
	ConsumerID     string
	DropID         string
	UnitKey        string
	Selection      catalog.Selection
	PaymentMethod  string
	IdempotencyKey string
}

// ClaimInput is what the store applies in one transaction.
type ClaimInput struct {
	Booking        Booking
	Target         catalog.Target
	SupplierListID string
	// Discount maps the drop's new committed value to its new discount.
	Discount func(value int64) decimal.Decimal
}

// DropValue is a drop's committed value and discount after a claim.
type DropValue struct {
	CurrentValue    int64
	CurrentDiscount decimal.Decimal
}

// Claimed is the result of a successful claim.
type Claimed struct {
	Booking   Booking   `json:"booking"`
	DropValue DropValue `json:"-"`
	Stock     int       `json:"-"`
	// Replayed is set when an idempotency key returned an earlier booking.
	Replayed bool `json:"replayed"`
}
