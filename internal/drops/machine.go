package drops

import (
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/discount"
)

// Due reports the timer-driven transition a drop is ready for at now, if any.
// Only approved and active drops move on their own; everything else waits
// for an administrative action. Calling it again after the move is a no-op
// because the new state has no timer transition left.
func Due(d Drop, r discount.Range, now time.Time) (Status, bool) {
	switch d.Status {
	case StatusApproved:
		if d.StartTime != nil && !now.Before(*d.StartTime) {
			return StatusActive, true
		}
	case StatusActive:
		if d.EndTime != nil && !now.Before(*d.EndTime) {
			if d.CurrentValue >= r.MinValue {
				return StatusCompleted, true
			}
			return StatusExpired, true
		}
	}
	return "", false
}
