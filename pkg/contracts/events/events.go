// Package events defines the WebSocket contract between the report
// service and its clients: one envelope, four event types.
package events

import (
	"time"
)

// MessageType identifies what an event payload carries.
type MessageType string

const (
	// MessageTypeExtractionProgress reports pipeline stage movement for
	// an upload that is being processed.
	MessageTypeExtractionProgress MessageType = "extraction:progress"

	// MessageTypeExtractionComplete reports the terminal state of an
	// upload's pipeline run, success or failure.
	MessageTypeExtractionComplete MessageType = "extraction:complete"

	// MessageTypeReportSaved announces a newly persisted report.
	MessageTypeReportSaved MessageType = "report:saved"

	// MessageTypeConnectionStatus tells a client about its own connection.
	MessageTypeConnectionStatus MessageType = "connection:status"
)

// Connection statuses carried by ConnectionStatus events.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Message is the envelope every event travels in.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewMessage wraps a payload in the envelope with the current time.
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ExtractionProgress is the payload of extraction:progress events.
type ExtractionProgress struct {
	PipelineID string `json:"pipeline_id"`
	Stage      string `json:"stage"`
	FileName   string `json:"file_name,omitempty"`
	Progress   int    `json:"progress"` // 0-100 across the whole pipeline
	Message    string `json:"message,omitempty"`
}

// ExtractionComplete is the payload of extraction:complete events.
type ExtractionComplete struct {
	PipelineID  string `json:"pipeline_id"`
	ReportID    string `json:"report_id,omitempty"`
	FileName    string `json:"file_name"`
	WeekNumber  string `json:"week_number,omitempty"`
	SheetCount  int    `json:"sheet_count"`
	RecordCount int    `json:"record_count"`
	DurationMS  int64  `json:"duration_ms"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// ReportSaved is the payload of report:saved events.
type ReportSaved struct {
	ReportID   string    `json:"report_id"`
	FileName   string    `json:"file_name"`
	WeekNumber string    `json:"week_number"`
	SheetCount int       `json:"sheet_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ConnectionStatus is the payload of connection:status events.
type ConnectionStatus struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id,omitempty"`
	Message  string `json:"message,omitempty"`
}
