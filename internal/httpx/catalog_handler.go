package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/ariefcatur/go-groupbuy-drops/internal/discount"
	"github.com/ariefcatur/go-groupbuy-drops/internal/drops"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxImportSize = 10 << 20

type CreateListReq struct {
	SupplierID  string          `json:"supplier_id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	MinDiscount decimal.Decimal `json:"min_discount"`
	MaxDiscount decimal.Decimal `json:"max_discount"`
	MinValue    int64           `json:"min_value" validate:"gt=0"`
	MaxValue    int64           `json:"max_value" validate:"gt=0"`
}

type ListStatusReq struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

type InterestReq struct {
	ConsumerID     string `json:"consumer_id" validate:"required"`
	SupplierListID string `json:"supplier_list_id" validate:"required"`
	PickupPointID  string `json:"pickup_point_id" validate:"required"`
	ProductID      string `json:"product_id" validate:"required"`
	ValueCents     int64  `json:"value_cents" validate:"gt=0"`
}

type InterestResp struct {
	Drop        *drops.Drop `json:"drop,omitempty"`
	DropCreated bool        `json:"drop_created"`
}

// ProductView is a sellable unit with only the variants a shopper can pick.
type ProductView struct {
	catalog.SellableUnit
	Variants []catalog.Variant `json:"variants"`
	RowStock map[string]int    `json:"row_stock,omitempty"`
}

func (h *Handler) createList(w http.ResponseWriter, r *http.Request) {
	var req CreateListReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	l, err := h.Drops.CreateList(r.Context(), drops.NewList{
		SupplierID: req.SupplierID,
		Name:       req.Name,
		Range: discount.Range{
			MinDiscount: req.MinDiscount,
			MaxDiscount: req.MaxDiscount,
			MinValue:    req.MinValue,
			MaxValue:    req.MaxValue,
		},
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) setListStatus(w http.ResponseWriter, r *http.Request) {
	var req ListStatusReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	id := chi.URLParam(r, "listID")
	if err := h.Drops.SetListStatus(r.Context(), id, drops.ListStatus(req.Status)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	units, err := h.Catalog.Units(r.Context(), chi.URLParam(r, "listID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out := make([]ProductView, 0, len(units))
	for _, u := range units {
		out = append(out, ProductView{SellableUnit: u, Variants: u.DisplayVariants()})
	}
	writeJSON(w, http.StatusOK, out)
}

// resolveSelection tells the shopper whether a size/color choice can be claimed.
func (h *Handler) resolveSelection(w http.ResponseWriter, r *http.Request) {
	var sel catalog.Selection
	if err := decode(r, &sel); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	u, err := h.Catalog.Unit(r.Context(), chi.URLParam(r, "listID"), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.Resolve(u, sel))
}

func (h *Handler) importProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, r, h.Log, apperr.Validation(apperr.CodeValidation, "expected a multipart upload"))
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.Log, apperr.Validation(apperr.CodeValidation, "file is required"))
		return
	}
	defer f.Close()
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
		writeError(w, r, h.Log, apperr.Validation(apperr.CodeValidation, "only .xlsx files are accepted"))
		return
	}
	rep, err := h.Catalog.Import(r.Context(), chi.URLParam(r, "listID"), f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) recordInterest(w http.ResponseWriter, r *http.Request) {
	var req InterestReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	d, created, err := h.Drops.RecordInterest(r.Context(), drops.Interest{
		ConsumerID:     req.ConsumerID,
		SupplierListID: req.SupplierListID,
		PickupPointID:  req.PickupPointID,
		ProductID:      req.ProductID,
		ValueCents:     req.ValueCents,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	resp := InterestResp{DropCreated: created}
	if d.ID != "" {
		resp.Drop = &d
	}
	writeJSON(w, http.StatusAccepted, resp)
}
