package models

import "time"

// APIResponse is the envelope every REST endpoint responds with
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK wraps data in a success envelope
func OK(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// Err wraps an error message in a failure envelope
func Err(message string) APIResponse {
	return APIResponse{Success: false, Error: message}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}
