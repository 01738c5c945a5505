package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	payload := ReportSaved{ReportID: "rpt-1", WeekNumber: "34"}

	msg := NewMessage(MessageTypeReportSaved, payload)

	assert.Equal(t, MessageTypeReportSaved, msg.Type)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())
	assert.WithinDuration(t, time.Now().UTC(), msg.Timestamp, 5*time.Second)
	assert.Equal(t, payload, msg.Data)
	assert.Empty(t, msg.TraceID)
}

func TestMessage_WireFormat(t *testing.T) {
	msg := NewMessage(MessageTypeExtractionProgress, ExtractionProgress{
		PipelineID: "pl-1",
		Stage:      "extract",
		Progress:   75,
	})

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "extraction:progress", decoded["type"])
	assert.Contains(t, decoded, "timestamp")
	assert.NotContains(t, decoded, "trace_id", "empty trace IDs stay off the wire")

	eventData, ok := decoded["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pl-1", eventData["pipeline_id"])
	assert.Equal(t, float64(75), eventData["progress"])
}

func TestMessage_TraceIDOnWire(t *testing.T) {
	msg := NewMessage(MessageTypeConnectionStatus, ConnectionStatus{Status: StatusConnected})
	msg.TraceID = "trace-123"

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "trace-123", decoded["trace_id"])
}

func TestMessageTypes(t *testing.T) {
	assert.Equal(t, MessageType("extraction:progress"), MessageTypeExtractionProgress)
	assert.Equal(t, MessageType("extraction:complete"), MessageTypeExtractionComplete)
	assert.Equal(t, MessageType("report:saved"), MessageTypeReportSaved)
	assert.Equal(t, MessageType("connection:status"), MessageTypeConnectionStatus)
}
