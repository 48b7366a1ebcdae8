package documents

// EditStep is one stage of the document preparation flow.
type EditStep string

const (
	StepSettings EditStep = "settings"
	StepSigners  EditStep = "signers"
	StepFields   EditStep = "fields"
	StepSubject  EditStep = "subject"
)

// EditSteps lists the flow in order. Each step persists before the next
// becomes reachable.
var EditSteps = []EditStep{StepSettings, StepSigners, StepFields, StepSubject}

// IsValidStep reports whether s names a known step.
func IsValidStep(s string) bool {
	for _, step := range EditSteps {
		if string(step) == s {
			return true
		}
	}
	return false
}

// ResolveStep maps a requested step (typically a ?step= query parameter) to
// the step the flow actually opens on. Unknown steps fall back to settings,
// as do fields/subject when no recipient has been added yet.
func ResolveStep(requested string, recipientCount int) EditStep {
	if !IsValidStep(requested) {
		return StepSettings
	}

	step := EditStep(requested)
	if recipientCount == 0 && (step == StepFields || step == StepSubject) {
		return StepSettings
	}
	return step
}

// NextStep returns the step following s, or s itself at the end of the flow.
func NextStep(s EditStep) EditStep {
	for i, step := range EditSteps {
		if step == s && i+1 < len(EditSteps) {
			return EditSteps[i+1]
		}
	}
	return s
}
