package drops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusPendingApproval, StatusApproved},
		{StatusPendingApproval, StatusCancelled},
		{StatusApproved, StatusActive},
		{StatusApproved, StatusCancelled},
		{StatusActive, StatusInactive},
		{StatusInactive, StatusActive},
		{StatusActive, StatusCompleted},
		{StatusActive, StatusExpired},
	}
	for _, a := range allowed {
		assert.True(t, CanTransition(a[0], a[1]), "%s -> %s", a[0], a[1])
	}

	assert.False(t, CanTransition(StatusPendingApproval, StatusActive))
	assert.False(t, CanTransition(StatusInactive, StatusCompleted))
	assert.False(t, CanTransition(StatusActive, StatusCancelled))
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []Status{StatusPendingApproval, StatusApproved, StatusActive, StatusInactive,
		StatusCompleted, StatusExpired, StatusCancelled, StatusUnderfunded}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusUnderfunded.Terminal())
	assert.False(t, StatusInactive.Terminal())
}
