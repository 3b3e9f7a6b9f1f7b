package jobs

// GenerateRequest represents a request to start a job
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse represents a response to a generate request
type GenerateResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}
