package comfy

import "encoding/json"

// MediaKind selects which node-output field is harvested after execution.
type MediaKind string

const (
	KindImages MediaKind = "images"
	KindAudio  MediaKind = "audio"
)

// OutputDescriptor identifies one produced artifact in the backend's
// content store.
type OutputDescriptor struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// queueRequest is the POST /prompt body.
type queueRequest struct {
	Prompt   Workflow `json:"prompt"`
	ClientID string   `json:"client_id"`
}

// queueResponse is the submission acknowledgment.
type queueResponse struct {
	PromptID string `json:"prompt_id"`
}

// wsEvent is a JSON text frame pushed on the event stream. Execution is
// complete when Type is "executing", Node is null and PromptID matches the
// submission.
type wsEvent struct {
	Type string `json:"type"`
	Data struct {
		Node     *string `json:"node"`
		PromptID string  `json:"prompt_id"`
	} `json:"data"`
}

// historyRecord is one prompt's entry in the GET /history response. Node
// outputs stay raw because nodes expose kind-specific shapes; only the
// requested media kind is decoded into descriptors.
type historyRecord struct {
	Outputs map[string]map[string]json.RawMessage `json:"outputs"`
}
