package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("claim: %w", &Error{Kind: KindContention, Code: CodeOutOfStock, Message: "variant v1"})
	assert.True(t, errors.Is(wrapped, ErrOutOfStock))
	assert.False(t, errors.Is(wrapped, ErrDropNotActive))
}

func TestWrap_KeepsTaxonomyErrors(t *testing.T) {
	assert.Same(t, ErrSelectionIncomplete, Wrap(ErrSelectionIncomplete, "claim"))

	err := Wrap(errors.New("conn reset"), "load drop")
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.Equal(t, CodeInfrastructure, CodeOf(err))
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, ActionReselect, ActionFor(ErrSelectionIncomplete))
	assert.Equal(t, ActionRefresh, ActionFor(ErrOutOfStock))
	assert.Equal(t, ActionRefresh, ActionFor(ErrDropNotActive))
	assert.Equal(t, ActionRetry, ActionFor(Transient(errors.New("42501"))))
	assert.Equal(t, ActionRetry, ActionFor(errors.New("boom")))
	assert.Equal(t, ActionNone, ActionFor(nil))
}
