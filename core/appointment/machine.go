// Package appointment implements the appointment lifecycle state machine and
// the service applying transitions through optimistic concurrency.
package appointment

import (
	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/model"
)

// Action identifies a requested lifecycle transition.
type Action string

const (
	ActionAssign   Action = "assign"
	ActionConfirm  Action = "confirm"
	ActionDecline  Action = "decline"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// ParseAction validates an action received at the API boundary.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAssign, ActionConfirm, ActionDecline, ActionCancel, ActionComplete:
		return Action(s), nil
	default:
		return "", fault.New(fault.KindValidation, "unknown action %q", s)
	}
}

// transitions maps each action to the statuses it may be applied from.
var transitions = map[Action]struct {
	from map[model.Status]bool
	to   model.Status
}{
	ActionAssign: {
		from: map[model.Status]bool{model.StatusPending: true},
		to:   model.StatusAssigned,
	},
	ActionConfirm: {
		from: map[model.Status]bool{model.StatusAssigned: true},
		to:   model.StatusInProgress,
	},
	ActionDecline: {
		from: map[model.Status]bool{model.StatusPending: true, model.StatusAssigned: true},
		to:   model.StatusPending,
	},
	ActionCancel: {
		from: map[model.Status]bool{
			model.StatusPending:    true,
			model.StatusAssigned:   true,
			model.StatusInProgress: true,
		},
		to: model.StatusCancelled,
	},
	ActionComplete: {
		from: map[model.Status]bool{model.StatusInProgress: true},
		to:   model.StatusCompleted,
	},
}

// Next returns the status an appointment in cur moves to under act. It is a
// pure function of the transition table; an impermissible pair yields a
// conflict error and no other outcome.
func Next(cur model.Status, act Action) (model.Status, error) {
	t, ok := transitions[act]
	if !ok {
		return 0, fault.New(fault.KindValidation, "unknown action %q", act)
	}
	if !t.from[cur] {
		return 0, fault.New(fault.KindConflict, "cannot %s appointment in status %s", act, cur)
	}
	return t.to, nil
}
