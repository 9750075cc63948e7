package httpx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/drops"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/ariefcatur/go-groupbuy-drops/internal/redisx"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ApproveReq struct {
	StartTime *time.Time `json:"start_time,omitempty"`
}

func (h *Handler) getDrop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	key := fmt.Sprintf(redisx.KeyDropView, id)

	// 1) cache
	if h.Cache != nil {
		var v drops.View
		if hit, err := h.Cache.Get(ctx, key, &v); err == nil && hit {
			writeJSON(w, http.StatusOK, v)
			return
		}
	}

	// 2) store
	v, err := h.Drops.View(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Set(ctx, key, v, redisx.TTLDropView); err != nil {
			logging.FromContext(ctx, h.Log).Warn("drop view cache write", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) approveDrop(w http.ResponseWriter, r *http.Request) {
	var req ApproveReq
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, h.Log, err)
			return
		}
	}
	id := chi.URLParam(r, "id")
	d, err := h.Drops.Approve(r.Context(), id, req.StartTime)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.forgetDrop(r.Context(), id)
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) dropAction(fn func(DropService, context.Context, string) (drops.Drop, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		d, err := fn(h.Drops, r.Context(), id)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		h.forgetDrop(r.Context(), id)
		writeJSON(w, http.StatusOK, d)
	}
}

// forgetDrop evicts the cached view after anything that changes the drop.
func (h *Handler) forgetDrop(ctx context.Context, id string) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Delete(ctx, fmt.Sprintf(redisx.KeyDropView, id)); err != nil {
		logging.FromContext(ctx, h.Log).Warn("drop view cache evict", zap.String("drop_id", id), zap.Error(err))
	}
}
