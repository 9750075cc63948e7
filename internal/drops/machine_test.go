package drops

import (
	"testing"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/discount"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testRange() discount.Range {
	return discount.Range{
		MinDiscount: decimal.NewFromInt(30),
		MaxDiscount: decimal.NewFromInt(80),
		MinValue:    5000,
		MaxValue:    30000,
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	r := testRange()

	to, ok := Due(Drop{Status: StatusApproved, StartTime: &past}, r, now)
	assert.True(t, ok)
	assert.Equal(t, StatusActive, to)

	_, ok = Due(Drop{Status: StatusApproved, StartTime: &future}, r, now)
	assert.False(t, ok)

	to, _ = Due(Drop{Status: StatusActive, EndTime: &now, CurrentValue: 5000}, r, now)
	assert.Equal(t, StatusCompleted, to)

	to, _ = Due(Drop{Status: StatusActive, EndTime: &past, CurrentValue: 4999}, r, now)
	assert.Equal(t, StatusExpired, to)

	_, ok = Due(Drop{Status: StatusInactive, EndTime: &past, CurrentValue: 9000}, r, now)
	assert.False(t, ok)

	_, ok = Due(Drop{Status: StatusCompleted, EndTime: &past}, r, now)
	assert.False(t, ok)
}
