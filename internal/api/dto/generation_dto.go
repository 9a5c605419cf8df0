package dto

type CreateGenerationRequest struct {
	Kind       string `json:"kind" binding:"required,oneof=image voice music"`
	Prompt     string `json:"prompt"`
	Random     bool   `json:"random"`
	Enhanced   bool   `json:"enhanced"`
	Resolution string `json:"resolution"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Seconds    int    `json:"seconds"`
}

type GenerationResponse struct {
	TaskID        string `json:"task_id"`
	Kind          string `json:"kind"`
	Prompt        string `json:"prompt"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	ArtifactCount int    `json:"artifact_count"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type ListGenerationsResponse struct {
	Generations []GenerationResponse `json:"generations"`
}

type AskRequest struct {
	Message string `json:"message" binding:"required"`
}

type AskResponse struct {
	Replies []string `json:"replies"`
}

type SpeakRequest struct {
	Text  string `json:"text" binding:"required"`
	Voice string `json:"voice" binding:"omitempty,oneof=male female"`
}
