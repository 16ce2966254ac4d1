package dto

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	// Context is optional background, such as an earlier upload summary.
	Context string `json:"context,omitempty"`
}

type ChatResponse struct {
	Message     ChatMessage `json:"message"`
	CreditsUsed int64       `json:"credits_used"`
}

type UploadResponse struct {
	Summary     string `json:"summary"`
	CreditsUsed int64  `json:"credits_used"`
}
