package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStep(t *testing.T) {
	tests := []struct {
		name           string
		requested      string
		recipientCount int
		want           EditStep
	}{
		{"empty falls back to settings", "", 0, StepSettings},
		{"unknown falls back to settings", "review", 2, StepSettings},
		{"settings always reachable", "settings", 0, StepSettings},
		{"signers always reachable", "signers", 0, StepSigners},
		{"fields needs a recipient", "fields", 0, StepSettings},
		{"fields with recipients", "fields", 1, StepFields},
		{"subject needs a recipient", "subject", 0, StepSettings},
		{"subject with recipients", "subject", 3, StepSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStep(tt.requested, tt.recipientCount))
		})
	}
}

func TestNextStep(t *testing.T) {
	assert.Equal(t, StepSigners, NextStep(StepSettings))
	assert.Equal(t, StepFields, NextStep(StepSigners))
	assert.Equal(t, StepSubject, NextStep(StepFields))
	assert.Equal(t, StepSubject, NextStep(StepSubject))
}
