package workflows

import "errors"

// ErrInvalidTransition is returned when a status change is not allowed
var ErrInvalidTransition = errors.New("invalid status transition")

// StateMachine enforces document status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewDocumentStateMachine creates the signing lifecycle state machine.
// Documents only move forward; COMPLETED and CANCELLED are terminal.
func NewDocumentStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"DRAFT":     {"PENDING", "CANCELLED"},
			"PENDING":   {"COMPLETED", "CANCELLED"},
			"COMPLETED": {},
			"CANCELLED": {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Transition validates a status change, returning ErrInvalidTransition
// when the change is not allowed
func (sm *StateMachine) Transition(from, to string) error {
	if !sm.CanTransition(from, to) {
		return ErrInvalidTransition
	}
	return nil
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

// IsTerminal reports whether no further transitions exist from the status
func (sm *StateMachine) IsTerminal(from string) bool {
	return len(sm.GetAllowedTransitions(from)) == 0
}
