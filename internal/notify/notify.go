// Package notify records in-app notifications for consumers. Delivery is
// fire-and-forget: a failed write is logged and never fails the caller.
package notify

import (
	"context"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RelatedID string    `json:"related_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Insert(ctx context.Context, n Notification) error
	List(ctx context.Context, userID string, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type Dispatcher struct {
	Store  Store
	Events *events.Emitter
	Now    func() time.Time
	Log    *zap.Logger
}

// Notify stores one notification and announces it. It never returns an error.
func (d *Dispatcher) Notify(ctx context.Context, userID, title, message, relatedID string) {
	if d == nil || d.Store == nil || userID == "" {
		return
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
		CreatedAt: now().UTC(),
	}
	log := logging.FromContext(ctx, d.Log)
	if err := d.Store.Insert(ctx, n); err != nil {
		log.Warn("notification not stored", zap.String("user_id", userID), zap.String("related_id", relatedID), zap.Error(err))
		return
	}
	err := d.Events.Emit(ctx, events.TopicNotifications, events.EventNotificationCreated, relatedID, events.NotificationCreatedPayload{
		NotificationID: n.ID,
		UserID:         userID,
		RelatedID:      relatedID,
	})
	if err != nil {
		log.Warn("emit notification event", zap.String("notification_id", n.ID), zap.Error(err))
	}
}

func (d *Dispatcher) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	out, err := d.Store.List(ctx, userID, limit)
	return out, apperr.Wrap(err, "list notifications")
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := d.Store.UnreadCount(ctx, userID)
	return n, apperr.Wrap(err, "count unread notifications")
}

func (d *Dispatcher) MarkRead(ctx context.Context, userID, id string) error {
	return apperr.Wrap(d.Store.MarkRead(ctx, userID, id), "mark notification read")
}
