package state

import (
	"os"
)

const (
	ActionRender = "render"
	ActionSkip   = "skip"

	ReasonForced        = "forced"
	ReasonNew           = "new output"
	ReasonInputChanged  = "input changed"
	ReasonOutputMissing = "output missing"
	ReasonUpToDate      = "up to date"
)

// Decision describes the action to take for a single output.
type Decision struct {
	Action string
	Reason string
}

// Detect decides whether the output at key needs rendering by comparing the
// current input hash against the stored render state.
func Detect(rs *RenderState, key, inputHash string, force bool) Decision {
	if force {
		return Decision{Action: ActionRender, Reason: ReasonForced}
	}
	if rs == nil {
		return Decision{Action: ActionRender, Reason: ReasonNew}
	}

	prior, exists := rs.Outputs[key]
	if !exists {
		return Decision{Action: ActionRender, Reason: ReasonNew}
	}
	if inputHash != prior.InputHash {
		return Decision{Action: ActionRender, Reason: ReasonInputChanged}
	}
	if _, err := os.Stat(key); os.IsNotExist(err) {
		return Decision{Action: ActionRender, Reason: ReasonOutputMissing}
	}
	return Decision{Action: ActionSkip, Reason: ReasonUpToDate}
}

// Prune removes entries from the render state that are not in the current
// set of output keys.
func Prune(rs *RenderState, currentKeys map[string]bool) {
	for key := range rs.Outputs {
		if !currentKeys[key] {
			delete(rs.Outputs, key)
		}
	}
}
