package drops

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/discount"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	CreateList(ctx context.Context, l SupplierList) error
	GetList(ctx context.Context, id string) (SupplierList, error)
	SetListStatus(ctx context.Context, id string, status ListStatus) error
	InsertInterest(ctx context.Context, in Interest) error
	InterestTotal(ctx context.Context, supplierListID, pickupPointID string) (int64, error)
	CreateIfNoneOpen(ctx context.Context, d Drop) (bool, error)
	OpenForPair(ctx context.Context, supplierListID, pickupPointID string) (Drop, error)
	GetDrop(ctx context.Context, id string) (Drop, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, p Patch) (bool, error)
	ListDue(ctx context.Context, now time.Time) ([]Drop, error)
	CloseOut(ctx context.Context, id string, minValue int64, now time.Time) (Drop, bool, error)
}

type Service struct {
	Store    Store
	Events   *events.Emitter
	Duration time.Duration
	Now      func() time.Time
	Log      *zap.Logger
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, s.Log)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type NewList struct {
	SupplierID string
	Name       string
	Range      discount.Range
}

func (s *Service) CreateList(ctx context.Context, in NewList) (SupplierList, error) {
	if strings.TrimSpace(in.Name) == "" || in.SupplierID == "" {
		return SupplierList{}, apperr.Validation(apperr.CodeValidation, "name and supplier are required")
	}
	if err := in.Range.Validate(); err != nil {
		return SupplierList{}, err
	}
	l := SupplierList{
		ID:         uuid.NewString(),
		SupplierID: in.SupplierID,
		Name:       strings.TrimSpace(in.Name),
		Status:     ListActive,
		Range:      in.Range,
		CreatedAt:  s.now(),
	}
	if err := s.Store.CreateList(ctx, l); err != nil {
		return SupplierList{}, apperr.Wrap(err, "create supplier list")
	}
	return l, nil
}

func (s *Service) SetListStatus(ctx context.Context, id string, status ListStatus) error {
	if status != ListActive && status != ListInactive {
		return apperr.Validation(apperr.CodeValidation, "status must be active or inactive")
	}
	return apperr.Wrap(s.Store.SetListStatus(ctx, id, status), "set list status")
}

// RecordInterest stores a consumer's interest and re-evaluates whether the
// pair has crossed its threshold.
func (s *Service) RecordInterest(ctx context.Context, in Interest) (Drop, bool, error) {
	if in.ConsumerID == "" || in.SupplierListID == "" || in.PickupPointID == "" || in.ProductID == "" {
		return Drop{}, false, apperr.Validation(apperr.CodeValidation, "consumer, list, pickup point and product are required")
	}
	if in.ValueCents <= 0 {
		return Drop{}, false, apperr.Validation(apperr.CodeValidation, "interest value must be positive")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if err := s.Store.InsertInterest(ctx, in); err != nil {
		return Drop{}, false, apperr.Wrap(err, "record interest")
	}
	return s.EvaluateInterest(ctx, in.SupplierListID, in.PickupPointID)
}

// EvaluateInterest creates a pending drop the first time aggregate interest
// for the pair reaches the list's minimum value. With an open drop already in
// place it is a no-op and returns that drop with created=false.
func (s *Service) EvaluateInterest(ctx context.Context, supplierListID, pickupPointID string) (Drop, bool, error) {
	l, err := s.Store.GetList(ctx, supplierListID)
	if err != nil {
		return Drop{}, false, apperr.Wrap(err, "load supplier list")
	}
	if l.Status != ListActive {
		return Drop{}, false, nil
	}
	total, err := s.Store.InterestTotal(ctx, supplierListID, pickupPointID)
	if err != nil {
		return Drop{}, false, apperr.Wrap(err, "sum interest")
	}
	if total < l.Range.MinValue {
		return Drop{}, false, nil
	}

	now := s.now()
	d := Drop{
		ID:              uuid.NewString(),
		SupplierListID:  supplierListID,
		PickupPointID:   pickupPointID,
		Name:            l.Name + " @ " + pickupPointID,
		Status:          StatusPendingApproval,
		CurrentDiscount: l.Range.At(0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	created, err := s.Store.CreateIfNoneOpen(ctx, d)
	if err != nil {
		return Drop{}, false, apperr.Wrap(err, "create drop")
	}
	if !created {
		open, err := s.Store.OpenForPair(ctx, supplierListID, pickupPointID)
		if err != nil {
			return Drop{}, false, apperr.Wrap(err, "load open drop")
		}
		return open, false, nil
	}
	s.log(ctx).Info("drop created",
		zap.String("drop_id", d.ID), zap.String("supplier_list_id", supplierListID),
		zap.String("pickup_point_id", pickupPointID), zap.Int64("interest_total", total))
	s.emit(ctx, d, "", d.Status)
	return d, true, nil
}

func (s *Service) Get(ctx context.Context, id string) (Drop, error) {
	d, err := s.Store.GetDrop(ctx, id)
	return d, apperr.Wrap(err, "load drop")
}

func (s *Service) View(ctx context.Context, id string) (View, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	l, err := s.Store.GetList(ctx, d.SupplierListID)
	if err != nil {
		return View{}, apperr.Wrap(err, "load supplier list")
	}
	v := View{
		Drop:     d,
		List:     l,
		Discount: l.Range.At(d.CurrentValue),
		Progress: l.Range.Progress(d.CurrentValue),
	}
	if d.EndTime != nil && !d.Status.Terminal() {
		if rem := d.EndTime.Sub(s.now()); rem > 0 {
			v.Remaining = rem
		}
	}
	return v, nil
}

// Approve schedules the drop. A nil startAt starts it at the next tick.
func (s *Service) Approve(ctx context.Context, id string, startAt *time.Time) (Drop, error) {
	start := s.now()
	if startAt != nil {
		start = startAt.UTC()
	}
	end := start.Add(s.Duration)
	return s.transition(ctx, id, StatusPendingApproval, StatusApproved, Patch{StartTime: &start, EndTime: &end})
}

func (s *Service) Reject(ctx context.Context, id string) (Drop, error) {
	return s.transition(ctx, id, StatusPendingApproval, StatusCancelled, Patch{})
}

func (s *Service) Withdraw(ctx context.Context, id string) (Drop, error) {
	return s.transition(ctx, id, StatusApproved, StatusCancelled, Patch{})
}

func (s *Service) Pause(ctx context.Context, id string) (Drop, error) {
	return s.transition(ctx, id, StatusActive, StatusInactive, Patch{})
}

func (s *Service) Resume(ctx context.Context, id string) (Drop, error) {
	return s.transition(ctx, id, StatusInactive, StatusActive, Patch{})
}

// transition applies from->to after checking the table. The store update is
// conditional on from, so a concurrent change surfaces as an invalid transition.
func (s *Service) transition(ctx context.Context, id string, from, to Status, p Patch) (Drop, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return Drop{}, err
	}
	if d.Status != from || !CanTransition(from, to) {
		return Drop{}, apperr.InvalidTransition(string(d.Status), string(to))
	}
	ok, err := s.Store.UpdateStatus(ctx, id, from, to, p)
	if err != nil {
		return Drop{}, apperr.Wrap(err, "update drop status")
	}
	if !ok {
		cur, _ := s.Store.GetDrop(ctx, id)
		return Drop{}, apperr.InvalidTransition(string(cur.Status), string(to))
	}
	d.Status = to
	if p.StartTime != nil {
		d.StartTime = p.StartTime
	}
	if p.EndTime != nil {
		d.EndTime = p.EndTime
	}
	if p.CompletedAt != nil {
		d.CompletedAt = p.CompletedAt
	}
	s.log(ctx).Info("drop transition",
		zap.String("drop_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	s.emit(ctx, d, from, to)
	return d, nil
}

// Tick applies every timer-driven transition that is due. Running it twice
// for the same instant changes nothing the second time.
func (s *Service) Tick(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.Store.ListDue(ctx, now)
	if err != nil {
		return 0, apperr.Wrap(err, "list due drops")
	}
	lists := map[string]SupplierList{}
	moved := 0
	for _, d := range due {
		l, ok := lists[d.SupplierListID]
		if !ok {
			l, err = s.Store.GetList(ctx, d.SupplierListID)
			if err != nil {
				s.log(ctx).Warn("tick: load list", zap.String("drop_id", d.ID), zap.Error(err))
				continue
			}
			lists[d.SupplierListID] = l
		}
		to, ok := Due(d, l.Range, now)
		if !ok {
			continue
		}
		if d.Status == StatusActive {
			// d.CurrentValue is a snapshot; claims may land before the row is closed.
			if s.closeOut(ctx, d.ID, l.Range.MinValue, now) {
				moved++
			}
			continue
		}
		if _, err := s.transition(ctx, d.ID, d.Status, to, Patch{}); err != nil {
			if apperr.KindOf(err) == apperr.KindInvalidTransition {
				continue
			}
			s.log(ctx).Warn("tick: transition", zap.String("drop_id", d.ID), zap.Error(err))
			continue
		}
		moved++
	}
	return moved, nil
}

// closeOut ends an active drop past its end time. The store decides completed
// or expired against the committed value under the row lock.
func (s *Service) closeOut(ctx context.Context, id string, minValue int64, now time.Time) bool {
	d, ok, err := s.Store.CloseOut(ctx, id, minValue, now)
	if err != nil {
		s.log(ctx).Warn("tick: close out", zap.String("drop_id", id), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	s.log(ctx).Info("drop transition",
		zap.String("drop_id", id),
		zap.String("from", string(StatusActive)),
		zap.String("to", string(d.Status)),
		zap.Int64("current_value", d.CurrentValue))
	s.emit(ctx, d, StatusActive, d.Status)
	return true
}

func (s *Service) emit(ctx context.Context, d Drop, from, to Status) {
	err := s.Events.Emit(ctx, events.TopicDropLifecycle, events.EventDropStatusChanged, d.ID, events.DropStatusChangedPayload{
		DropID:         d.ID,
		SupplierListID: d.SupplierListID,
		PickupPointID:  d.PickupPointID,
		From:           string(from),
		To:             string(to),
		CurrentValue:   d.CurrentValue,
		At:             s.now(),
	})
	if err != nil {
		s.log(ctx).Warn("emit drop event", zap.String("drop_id", d.ID), zap.Error(err))
	}
}
