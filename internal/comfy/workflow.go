package comfy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Node is one node definition inside a workflow graph. The dispatcher never
// interprets node semantics; it only pokes values into the "inputs" mapping.
type Node map[string]any

// Workflow is the declarative job graph submitted to ComfyUI, keyed by node
// identifier. Templates are stored as JSON files and mutated per request.
type Workflow map[string]Node

// LoadWorkflow reads a workflow template from a JSON file.
func LoadWorkflow(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file: %w", err)
	}

	return wf, nil
}

// SetInput sets one field under a node's "inputs" mapping, e.g. the prompt
// text, the sampler seed, or the output resolution.
func (wf Workflow) SetInput(nodeID, field string, value any) error {
	node, ok := wf[nodeID]
	if !ok {
		return fmt.Errorf("workflow has no node %q", nodeID)
	}

	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return fmt.Errorf("node %q has no inputs mapping", nodeID)
	}

	inputs[field] = value
	return nil
}

// Clone deep-copies a workflow through JSON so a template can be mutated per
// request without touching the shared copy.
func (wf Workflow) Clone() (Workflow, error) {
	data, err := json.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}

	var out Workflow
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}

	return out, nil
}
