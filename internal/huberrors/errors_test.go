package huberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("suggest: %w", NewValidationError("ingredients", "at least one ingredient is required"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, NewUnavailableError("history disabled"), ErrUnavailable)
	assert.NotErrorIs(t, errors.New("boom"), ErrValidation)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "question is required", NewValidationError("question", "question is required").Error())
	assert.Equal(t, "validation failed for field: question", NewValidationError("question", "").Error())
	assert.Equal(t, "unavailable error", (&Error{Kind: KindUnavailable}).Error())
}
