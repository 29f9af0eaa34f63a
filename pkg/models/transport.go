package models

// ErrorResponse represents an error response
// UpstreamStatus is only set when the model endpoint answered with a non-2xx status.
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message,omitempty"`
	Type           string `json:"type,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Timestamp    string `json:"timestamp"`
	AIConfigured bool   `json:"ai_configured"`
	Provider     string `json:"provider"`
}
