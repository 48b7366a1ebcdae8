package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	sm := NewDocumentStateMachine()

	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"draft to pending", "DRAFT", "PENDING", true},
		{"draft to cancelled", "DRAFT", "CANCELLED", true},
		{"pending to completed", "PENDING", "COMPLETED", true},
		{"pending to cancelled", "PENDING", "CANCELLED", true},
		{"draft to completed skips pending", "DRAFT", "COMPLETED", false},
		{"pending back to draft", "PENDING", "DRAFT", false},
		{"completed back to pending", "COMPLETED", "PENDING", false},
		{"completed to cancelled", "COMPLETED", "CANCELLED", false},
		{"cancelled to pending", "CANCELLED", "PENDING", false},
		{"unknown status", "ARCHIVED", "PENDING", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, sm.CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransitionReturnsSentinel(t *testing.T) {
	sm := NewDocumentStateMachine()

	assert.NoError(t, sm.Transition("DRAFT", "PENDING"))
	assert.ErrorIs(t, sm.Transition("COMPLETED", "DRAFT"), ErrInvalidTransition)
}

func TestTerminalStates(t *testing.T) {
	sm := NewDocumentStateMachine()

	assert.True(t, sm.IsTerminal("COMPLETED"))
	assert.True(t, sm.IsTerminal("CANCELLED"))
	assert.False(t, sm.IsTerminal("DRAFT"))
	assert.False(t, sm.IsTerminal("PENDING"))
}
