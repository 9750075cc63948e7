package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-groupbuy-drops/internal/booking"
	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ClaimReq struct {
	UnitKey       string `json:"unit_key" validate:"required"`
	Size          string `json:"size,omitempty"`
	Color         string `json:"color,omitempty"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

type ClaimResp struct {
	Booking         booking.Booking  `json:"booking"`
	Replayed        bool             `json:"replayed"`
	CurrentValue    int64            `json:"current_value,omitempty"`
	CurrentDiscount *decimal.Decimal `json:"current_discount,omitempty"`
	RemainingStock  *int             `json:"remaining_stock,omitempty"`
}

// claim books one unit of a drop for the calling consumer. A repeated
// Idempotency-Key replays the first booking with 200 instead of 201.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var req ClaimReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	dropID := chi.URLParam(r, "id")
	res, err := h.Bookings.Claim(r.Context(), booking.ClaimRequest{
		ConsumerID:     uid,
		DropID:         dropID,
		UnitKey:        req.UnitKey,
		Selection:      catalog.Selection{Size: req.Size, Color: req.Color},
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	resp := ClaimResp{Booking: res.Booking, Replayed: res.Replayed}
	if res.Replayed {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	h.forgetDrop(r.Context(), dropID)
	resp.CurrentValue = res.DropValue.CurrentValue
	resp.CurrentDiscount = &res.DropValue.CurrentDiscount
	resp.RemainingStock = &res.Stock
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) captureBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Capture(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) releaseBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Release(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
