package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/fulfillment"
	"github.com/go-chi/chi/v5"
)

type ReturnReq struct {
	Reason string `json:"reason" validate:"required"`
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	pp := r.URL.Query().Get("pickup_point_id")
	if pp == "" {
		writeError(w, r, h.Log, apperr.Validation(apperr.CodeValidation, "pickup_point_id is required"))
		return
	}
	out, err := h.Orders.List(r.Context(), pp, limitParam(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) listOrderItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Orders.ListItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) orderAction(fn func(FulfillmentService, context.Context, string) (fulfillment.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := fn(h.Orders, r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func (h *Handler) pickedUp(w http.ResponseWriter, r *http.Request) {
	it, err := h.Orders.MarkPickedUp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *Handler) returned(w http.ResponseWriter, r *http.Request) {
	var req ReturnReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	it, err := h.Orders.MarkReturned(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}
