package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateErrorExposesStates(t *testing.T) {
	err := NewStateError("pending_admin1", "pending_admin2")

	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "pending_admin1", stateErr.Expected)
	assert.Equal(t, "pending_admin2", stateErr.Actual)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Contains(t, err.Error(), "expected pending_admin1, actual pending_admin2")
}

func TestClonedSentinelMatchesWithIs(t *testing.T) {
	err := fmt.Errorf("commit: %w", Clone(ErrStaleState, "change request moved on"))

	assert.True(t, errors.Is(err, ErrStaleState))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(errors.New("boom"))

	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}
