package drops

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusActive          Status = "active"
	StatusInactive        Status = "inactive"
	StatusCompleted       Status = "completed"
	StatusExpired         Status = "expired"
	StatusCancelled       Status = "cancelled"
	StatusUnderfunded     Status = "underfunded"
)

var validNext = map[Status]map[Status]bool{
	StatusPendingApproval: {StatusApproved: true, StatusCancelled: true},
	StatusApproved:        {StatusActive: true, StatusCancelled: true},
	StatusActive:          {StatusInactive: true, StatusCompleted: true, StatusExpired: true},
	StatusInactive:        {StatusActive: true},
	StatusCompleted:       {},
	StatusExpired:         {},
	StatusCancelled:       {},
	StatusUnderfunded:     {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal states have no outgoing transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusExpired, StatusCancelled, StatusUnderfunded:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// OpenStatuses are the states that block a new drop for the same list and pickup point.
var OpenStatuses = []Status{StatusPendingApproval, StatusApproved, StatusActive, StatusInactive}
