package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsComparesByCode(t *testing.T) {
	err := New(CodeInvalidTransition, "proposal %d is %s", 7, "accepted")
	wrapped := fmt.Errorf("transition: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))
	assert.False(t, errors.Is(wrapped, ErrForbidden))
	assert.Equal(t, CodeInvalidTransition, CodeOf(wrapped))
	assert.Equal(t, "proposal 7 is accepted", MessageOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeConflict, cause, "email taken")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "email taken: boom", err.Error())
}

func TestNonDomainErrors(t *testing.T) {
	err := errors.New("db down")
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.False(t, IsDomain(err))
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Equal(t, "NOT_FOUND", MessageOf(ErrNotFound))
}
