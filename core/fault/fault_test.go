package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindClassification(t *testing.T) {
	assert.True(t, IsValidation(New(KindValidation, "bad input")))
	assert.True(t, IsNotFound(New(KindNotFound, "missing")))
	assert.True(t, IsConflict(New(KindConflict, "stale")))
	assert.True(t, IsDependency(New(KindDependency, "down")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, KindDependency, "redis ping")
	require.Error(t, err)
	assert.True(t, IsDependency(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dependency")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, KindDependency, "nothing"))
}

func TestKindSurvivesFurtherWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindConflict, "stale status"))
	assert.True(t, IsConflict(err))
}
