package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesClonesByCode(t *testing.T) {
	cloned := Clone(ErrTaskNotFound, "task 42 not found")

	assert.True(t, errors.Is(cloned, ErrTaskNotFound))
	assert.False(t, errors.Is(cloned, ErrSubmissionNotFound))
	assert.Equal(t, "task 42 not found", cloned.Message)
	assert.Equal(t, "task not found", ErrTaskNotFound.Message)
}

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("register: %w", ErrCodeExpired)
	assert.True(t, errors.Is(err, ErrCodeExpired))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := Internal(cause, "failed to load task")
	assert.ErrorIs(t, appErr, cause)
	assert.Equal(t, "failed to load task: connection reset", appErr.Error())
}
