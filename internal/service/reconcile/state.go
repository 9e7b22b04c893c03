package reconcile

import (
	"fmt"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

// State is a step of the count workflow.
type State string

const (
	StateSelection State = "SELECTION"
	StateInput     State = "INPUT"
	StateReport    State = "REPORT"
)

// Event drives the count workflow from one state to the next.
type Event string

const (
	EventStart    Event = "start"
	EventRecord   Event = "record"
	EventFinalize Event = "finalize"
	EventAbandon  Event = "abandon"
	EventFinish   Event = "finish"
)

type transitionKey struct {
	from  State
	event Event
}

// transitions is the complete workflow. Anything missing is rejected.
var transitions = map[transitionKey]State{
	{StateSelection, EventStart}: StateInput,
	{StateInput, EventRecord}:    StateInput,
	{StateInput, EventFinalize}:  StateReport,
	{StateReport, EventFinalize}: StateReport,
	{StateInput, EventAbandon}:   StateSelection,
	{StateReport, EventFinish}:   StateSelection,
}

// Next returns the state reached by applying event in from.
func Next(from State, event Event) (State, error) {
	to, ok := transitions[transitionKey{from: from, event: event}]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s while in %s", models.ErrInvalidTransition, event, from)
	}
	return to, nil
}
