package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Connections(t *testing.T) {
	m := NewMetrics()

	m.RecordConnection()
	m.RecordConnection()
	m.RecordConnection()
	m.RecordDisconnection(2 * time.Second)

	assert.Equal(t, int64(3), m.TotalConnections)
	assert.Equal(t, int64(2), m.ActiveConnections)
	assert.Equal(t, int64(3), m.MaxConcurrent)
	assert.Equal(t, 2*time.Second, m.AvgConnectionTime)

	m.RecordDisconnection(4 * time.Second)
	assert.Equal(t, 3*time.Second, m.AvgConnectionTime)
}

func TestMetrics_Messages(t *testing.T) {
	m := NewMetrics()

	m.RecordMessage(100)
	m.RecordMessage(50)
	m.RecordMessageError()

	assert.Equal(t, int64(2), m.MessagesSent)
	assert.Equal(t, int64(150), m.BytesSent)
	assert.Equal(t, int64(1), m.MessageErrors)
}

func TestMetrics_QueueAndDropped(t *testing.T) {
	m := NewMetrics()

	m.RecordQueueDepth(5)
	m.RecordQueueDepth(3)
	m.RecordDroppedMessage()
	m.RecordDroppedMessage()

	assert.Equal(t, int64(5), m.MaxQueueDepth)
	assert.Equal(t, int64(2), m.DroppedMessages)
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordConnection()
	m.RecordMessage(64)
	m.RecordDroppedMessage()

	snapshot := m.GetSnapshot()

	connections, ok := snapshot["connections"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(1), connections["total"])
	assert.Equal(t, int64(1), connections["active"])

	messages, ok := snapshot["messages"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(1), messages["sent"])
	assert.Equal(t, int64(64), messages["bytes_sent"])
	assert.Equal(t, int64(1), messages["dropped"])

	assert.Contains(t, snapshot, "uptime_seconds")
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordConnection()
	m.RecordMessage(10)
	m.RecordQueueDepth(7)
	before := m.LastReset

	time.Sleep(5 * time.Millisecond)
	m.Reset()

	assert.Equal(t, int64(0), m.TotalConnections)
	assert.Equal(t, int64(0), m.MessagesSent)
	assert.Equal(t, int64(0), m.MaxQueueDepth)
	assert.True(t, m.LastReset.After(before))
}

func TestGetMetrics_ReturnsGlobalInstance(t *testing.T) {
	assert.Same(t, GetMetrics(), GetMetrics())
}

func TestInitOTelMetrics(t *testing.T) {
	require.NoError(t, InitOTelMetrics())

	m := GetOTelMetrics()
	require.NotNil(t, m)

	// With the default no-op meter provider these must not panic.
	ctx := context.Background()
	m.RecordConnection(ctx, "client-1", "127.0.0.1:9000")
	m.RecordMessageSent(ctx, "server_message", "client-1", 128)
	m.RecordMessageReceived(ctx, "client_message", "client-1", 32)
	m.RecordMessageError(ctx, "server_message", "client-1", "write_failed")
	m.RecordQueueDepth(ctx, 4, "broadcast")
	m.RecordDroppedMessage(ctx, "report:saved", "queue_full")
	m.RecordBroadcast(ctx, "broadcast", 3, 3, 0)
	m.RecordClientCount(ctx, 3)
	m.RecordDisconnection(ctx, "client-1", time.Second, "normal")
}
