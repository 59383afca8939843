package editor

import (
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// State is the interaction mode the controller is in. Exactly one of the
// exclusive modes (Connecting, Dragging, Panning, EditingText) can be
// active at a time.
type State string

const (
	StateIdle               State = "idle"
	StateNodeSelected       State = "node_selected"
	StateConnectionSelected State = "connection_selected"
	StateConnecting         State = "connecting"
	StateDragging           State = "dragging"
	StatePanning            State = "panning"
	StateEditingText        State = "editing_text"
)

// ValidStateTransitions defines the allowed interaction state transitions.
// Connecting can only start from a selected node because port handles are
// only shown on the selection.
var ValidStateTransitions = map[State][]State{
	StateIdle:               {StateNodeSelected, StateConnectionSelected, StateDragging, StatePanning, StateEditingText},
	StateNodeSelected:       {StateIdle, StateNodeSelected, StateConnectionSelected, StateConnecting, StateDragging, StatePanning, StateEditingText},
	StateConnectionSelected: {StateIdle, StateNodeSelected, StateConnectionSelected, StateDragging, StatePanning, StateEditingText},
	StateConnecting:         {StateIdle},
	StateDragging:           {StateIdle, StateNodeSelected},
	StatePanning:            {StateIdle},
	StateEditingText:        {StateIdle, StateNodeSelected},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	for _, a := range ValidStateTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

// transition validates and executes a state change.
func (c *Controller) transition(to State) error {
	if !CanTransition(c.state, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid editor transition: %s -> %s", c.state, to).
			WithDetails(map[string]any{"from": string(c.state), "to": string(to)})
	}
	c.state = to
	return nil
}
