package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// OutputState tracks the render inputs and result for a single output file.
type OutputState struct {
	InputHash  string    `json:"input_hash"`
	RenderedAt time.Time `json:"rendered_at"`
	SourcePath string    `json:"source_path"`
	Effect     string    `json:"effect"`
	FrameCount int       `json:"frame_count"`
}

// RenderState tracks render state across all outputs for change detection.
// Outputs is keyed by the absolute output path.
type RenderState struct {
	Outputs map[string]OutputState `json:"outputs"`
}

// Load reads render state from the given path. A missing or corrupt file
// returns an empty state without error.
func Load(path string) (*RenderState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyState(), nil
	}

	var rs RenderState
	if err := json.Unmarshal(data, &rs); err != nil {
		return emptyState(), nil
	}

	if rs.Outputs == nil {
		rs.Outputs = map[string]OutputState{}
	}
	return &rs, nil
}

// Record stores the state of a successful render.
func (rs *RenderState) Record(key string, out OutputState) {
	if rs.Outputs == nil {
		rs.Outputs = map[string]OutputState{}
	}
	rs.Outputs[key] = out
}

// Save writes the render state atomically to the given path.
func (rs *RenderState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func emptyState() *RenderState {
	return &RenderState{
		Outputs: map[string]OutputState{},
	}
}
