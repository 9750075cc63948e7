package httpx

import (
	"context"
	"io"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/booking"
	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/ariefcatur/go-groupbuy-drops/internal/drops"
	"github.com/ariefcatur/go-groupbuy-drops/internal/fulfillment"
	"github.com/ariefcatur/go-groupbuy-drops/internal/notify"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogService interface {
	Units(ctx context.Context, supplierListID string) ([]catalog.SellableUnit, error)
	Unit(ctx context.Context, supplierListID, key string) (catalog.SellableUnit, error)
	Import(ctx context.Context, supplierListID string, r io.Reader) (catalog.ImportReport, error)
}

type DropService interface {
	CreateList(ctx context.Context, in drops.NewList) (drops.SupplierList, error)
	SetListStatus(ctx context.Context, id string, status drops.ListStatus) error
	RecordInterest(ctx context.Context, in drops.Interest) (drops.Drop, bool, error)
	View(ctx context.Context, id string) (drops.View, error)
	Approve(ctx context.Context, id string, startAt *time.Time) (drops.Drop, error)
	Reject(ctx context.Context, id string) (drops.Drop, error)
	Withdraw(ctx context.Context, id string) (drops.Drop, error)
	Pause(ctx context.Context, id string) (drops.Drop, error)
	Resume(ctx context.Context, id string) (drops.Drop, error)
}

type BookingService interface {
	Claim(ctx context.Context, req booking.ClaimRequest) (booking.Claimed, error)
	Get(ctx context.Context, id string) (booking.Booking, error)
	Capture(ctx context.Context, id string) (booking.Booking, error)
	Release(ctx context.Context, id string) (booking.Booking, error)
}

type FulfillmentService interface {
	Get(ctx context.Context, id string) (fulfillment.Order, error)
	List(ctx context.Context, pickupPointID string, limit int) ([]fulfillment.Order, error)
	Confirm(ctx context.Context, id string) (fulfillment.Order, error)
	Ship(ctx context.Context, id string) (fulfillment.Order, error)
	Cancel(ctx context.Context, id string) (fulfillment.Order, error)
	ConfirmArrived(ctx context.Context, id string) (fulfillment.Order, error)
	ListItems(ctx context.Context, orderID string) ([]fulfillment.StaffItem, error)
	MarkPickedUp(ctx context.Context, itemID string) (fulfillment.Item, error)
	MarkReturned(ctx context.Context, itemID, reason string) (fulfillment.Item, error)
}

type NotificationService interface {
	List(ctx context.Context, userID string, limit int) ([]notify.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// Cache holds short-lived drop views. It is optional.
type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Handler struct {
	Catalog       CatalogService
	Drops         DropService
	Bookings      BookingService
	Orders        FulfillmentService
	Notifications NotificationService
	Cache         Cache
	Log           *zap.Logger
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/lists", func(r chi.Router) {
		r.Post("/", h.createList)
		r.Patch("/{listID}/status", h.setListStatus)
		r.Get("/{listID}/products", h.listProducts)
		r.Post("/{listID}/products/{key}/resolve", h.resolveSelection)
		r.Post("/{listID}/import", h.importProducts)
	})
	r.Post("/interests", h.recordInterest)

	r.Route("/drops/{id}", func(r chi.Router) {
		r.Get("/", h.getDrop)
		r.Post("/approve", h.approveDrop)
		r.Post("/reject", h.dropAction(DropService.Reject))
		r.Post("/withdraw", h.dropAction(DropService.Withdraw))
		r.Post("/pause", h.dropAction(DropService.Pause))
		r.Post("/resume", h.dropAction(DropService.Resume))
		r.Post("/claims", h.claim)
	})

	r.Route("/bookings/{id}", func(r chi.Router) {
		r.Get("/", h.getBooking)
		r.Post("/capture", h.captureBooking)
		r.Post("/release", h.releaseBooking)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Get("/{id}/items", h.listOrderItems)
		r.Post("/{id}/confirm", h.orderAction(FulfillmentService.Confirm))
		r.Post("/{id}/ship", h.orderAction(FulfillmentService.Ship))
		r.Post("/{id}/arrived", h.orderAction(FulfillmentService.ConfirmArrived))
		r.Post("/{id}/cancel", h.orderAction(FulfillmentService.Cancel))
	})
	r.Post("/order-items/{id}/picked-up", h.pickedUp)
	r.Post("/order-items/{id}/returned", h.returned)

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.listNotifications)
		r.Get("/unread-count", h.unreadCount)
		r.Post("/{id}/read", h.markRead)
	})
}
