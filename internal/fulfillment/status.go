package fulfillment

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusInTransit      Status = "in_transit"
	StatusArrived        Status = "arrived"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:        {StatusConfirmed: true, StatusArrived: true, StatusCancelled: true},
	StatusConfirmed:      {StatusInTransit: true, StatusArrived: true, StatusCancelled: true},
	StatusInTransit:      {StatusArrived: true, StatusCancelled: true},
	StatusArrived:        {StatusReadyForPickup: true, StatusCancelled: true},
	StatusReadyForPickup: {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PickupStatus string

const (
	PickupPending  PickupStatus = "pending"
	PickupReady    PickupStatus = "ready"
	PickupPickedUp PickupStatus = "picked_up"
)
