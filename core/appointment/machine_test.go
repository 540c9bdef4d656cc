package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/model"
)

func TestNext_AllowedTransitions(t *testing.T) {
	tests := []struct {
		from model.Status
		act  Action
		to   model.Status
	}{
		{model.StatusPending, ActionAssign, model.StatusAssigned},
		{model.StatusAssigned, ActionConfirm, model.StatusInProgress},
		{model.StatusPending, ActionDecline, model.StatusPending},
		{model.StatusAssigned, ActionDecline, model.StatusPending},
		{model.StatusPending, ActionCancel, model.StatusCancelled},
		{model.StatusAssigned, ActionCancel, model.StatusCancelled},
		{model.StatusInProgress, ActionCancel, model.StatusCancelled},
		{model.StatusInProgress, ActionComplete, model.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(string(tt.act)+" from "+tt.from.String(), func(t *testing.T) {
			next, err := Next(tt.from, tt.act)
			require.NoError(t, err)
			assert.Equal(t, tt.to, next)
		})
	}
}

func TestNext_FromPendingOnlyAssignDeclineCancel(t *testing.T) {
	for _, act := range []Action{ActionConfirm, ActionComplete} {
		_, err := Next(model.StatusPending, act)
		require.Error(t, err, act)
		assert.True(t, fault.IsConflict(err), act)
	}
}

func TestNext_TerminalStatesRejectEverything(t *testing.T) {
	actions := []Action{ActionAssign, ActionConfirm, ActionDecline, ActionCancel, ActionComplete}
	for _, from := range []model.Status{model.StatusCompleted, model.StatusCancelled} {
		for _, act := range actions {
			_, err := Next(from, act)
			require.Error(t, err, "%s from %s", act, from)
			assert.True(t, fault.IsConflict(err), "%s from %s", act, from)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"assign", "confirm", "decline", "cancel", "complete"} {
		act, err := ParseAction(s)
		require.NoError(t, err)
		assert.Equal(t, Action(s), act)
	}
	_, err := ParseAction("reschedule")
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))
}
