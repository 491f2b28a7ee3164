// Package events contains the event contracts pushed to WebSocket clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Analytics messages
	MessageTypeAnalysisComplete MessageType = "analysis:complete"
	MessageTypeAnalysisFailed   MessageType = "analysis:failed"
	MessageTypeDatasetLoaded    MessageType = "dataset:loaded"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// AnalysisCompleted announces a finished analysis run
type AnalysisCompleted struct {
	RunID        string    `json:"run_id"`
	Fingerprint  string    `json:"fingerprint"`
	Granularity  string    `json:"granularity"`
	Countries    []string  `json:"countries"`
	Transactions int       `json:"transactions"`
	TotalRevenue string    `json:"total_revenue"`
	Warnings     []string  `json:"warnings,omitempty"`
	Cached       bool      `json:"cached"`
	DurationMS   int64     `json:"duration_ms"`
	CompletedAt  time.Time `json:"completed_at"`
}

// AnalysisFailed reports a run that could not produce a result
type AnalysisFailed struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error"`
}

// DatasetLoaded announces a newly loaded dataset
type DatasetLoaded struct {
	Source       string `json:"source"`
	Fingerprint  string `json:"fingerprint"`
	RawRows      int    `json:"raw_rows"`
	Transactions int    `json:"transactions"`
	Rejected     int    `json:"rejected"`
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Fatal   bool        `json:"fatal"`
}

// SystemStatus represents a system status event
type SystemStatus struct {
	Status     string            `json:"status"` // healthy|degraded|unhealthy
	Components map[string]string `json:"components"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
}

// NewMessage wraps data in a timestamped message of the given type
func NewMessage(msgType MessageType, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{Type: msgType, Timestamp: time.Now()},
		Data:        data,
	}
}
