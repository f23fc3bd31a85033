package model

// Judgement is the verdict on an uploaded photo (plant verification).
type Judgement struct {
	Pass    bool   `json:"pass"`
	Message string `json:"message"`
}

// ChatTurn is one message of an empathy role-play conversation.
type ChatTurn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// ChatJudgement is the AI reply plus empathy scoring for the latest turn.
type ChatJudgement struct {
	Response     string `json:"response"`
	EmpathyScore int    `json:"empathyScore"` // 0-100
	ScoreChange  int    `json:"scoreChange"`  // -10..15
}

// Feedback is the verdict on free-text fields (resolutions, reports).
type Feedback struct {
	Pass     bool   `json:"pass"`
	Feedback string `json:"feedback"`
}

// ImageResult is the outcome of an infographic generation request.
type ImageResult struct {
	Success   bool   `json:"success"`
	ImageData string `json:"imageData,omitempty"` // base64
	MimeType  string `json:"mimeType,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PlantCheckRequest asks the judge to verify a photo.
type PlantCheckRequest struct {
	ImageData    string `json:"imageData"` // base64
	MimeType     string `json:"mimeType"`
	Instructions string `json:"instructions"`
}

// EmpathyChatRequest carries the conversation so far.
type EmpathyChatRequest struct {
	Scenario string     `json:"scenario"`
	Turns    []ChatTurn `json:"turns"`
}

// ReportCheckRequest carries named free-text fields to validate.
type ReportCheckRequest struct {
	Kind   string            `json:"kind"` // "resolution" or "report"
	Fields map[string]string `json:"fields"`
}

// InfographicRequest asks for an illustration of team content.
type InfographicRequest struct {
	Prompt string `json:"prompt"`
}
