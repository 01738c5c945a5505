package websocket

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "staffpulse.websocket"

// OTelMetrics exports the hub's connection and delivery counters through
// OpenTelemetry, alongside the in-process Metrics snapshot.
type OTelMetrics struct {
	// connection lifecycle
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	connectionErrors   metric.Int64Counter

	// message delivery
	messagesTotal metric.Int64Counter
	messageBytes  metric.Int64Counter
	messageErrors metric.Int64Counter

	// broadcast queue
	queueDepth      metric.Int64Gauge
	droppedMessages metric.Int64Counter

	// hub state
	broadcastOperations metric.Int64Counter
	clientCount         metric.Int64Gauge
}

// NewOTelMetrics creates the WebSocket instrument set on the global meter.
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(meterName)

	m := &OTelMetrics{}
	var err error

	if m.connectionsTotal, err = meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("WebSocket connections accepted since start"),
	); err != nil {
		return nil, fmt.Errorf("connections counter: %w", err)
	}
	if m.connectionsActive, err = meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("WebSocket connections currently open"),
	); err != nil {
		return nil, fmt.Errorf("active connections counter: %w", err)
	}
	if m.connectionDuration, err = meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("How long WebSocket connections stay open"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("connection duration histogram: %w", err)
	}
	if m.connectionErrors, err = meter.Int64Counter(
		"websocket_connection_errors_total",
		metric.WithDescription("Failed WebSocket upgrades and handshakes"),
	); err != nil {
		return nil, fmt.Errorf("connection errors counter: %w", err)
	}
	if m.messagesTotal, err = meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("WebSocket messages in either direction"),
	); err != nil {
		return nil, fmt.Errorf("messages counter: %w", err)
	}
	if m.messageBytes, err = meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("WebSocket payload bytes in either direction"),
	); err != nil {
		return nil, fmt.Errorf("message bytes counter: %w", err)
	}
	if m.messageErrors, err = meter.Int64Counter(
		"websocket_message_errors_total",
		metric.WithDescription("WebSocket messages that failed to deliver"),
	); err != nil {
		return nil, fmt.Errorf("message errors counter: %w", err)
	}
	if m.queueDepth, err = meter.Int64Gauge(
		"websocket_queue_depth",
		metric.WithDescription("Events waiting in the broadcast queue"),
	); err != nil {
		return nil, fmt.Errorf("queue depth gauge: %w", err)
	}
	if m.droppedMessages, err = meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Events dropped because the broadcast queue was full"),
	); err != nil {
		return nil, fmt.Errorf("dropped messages counter: %w", err)
	}
	if m.broadcastOperations, err = meter.Int64Counter(
		"websocket_broadcast_operations_total",
		metric.WithDescription("Broadcast fan-out operations"),
	); err != nil {
		return nil, fmt.Errorf("broadcast counter: %w", err)
	}
	if m.clientCount, err = meter.Int64Gauge(
		"websocket_client_count",
		metric.WithDescription("Clients currently registered with the hub"),
	); err != nil {
		return nil, fmt.Errorf("client count gauge: %w", err)
	}

	return m, nil
}

// RecordConnection records a client joining the hub.
func (m *OTelMetrics) RecordConnection(ctx context.Context, clientID, remoteAddr string) {
	attrs := metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("remote_addr", remoteAddr),
	)

	m.connectionsTotal.Add(ctx, 1, attrs)
	m.connectionsActive.Add(ctx, 1, attrs)
}

// RecordDisconnection records a client leaving the hub and how long it stayed.
func (m *OTelMetrics) RecordDisconnection(ctx context.Context, clientID string, duration time.Duration, reason string) {
	attrs := metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("disconnect_reason", reason),
	)

	m.connectionsActive.Add(ctx, -1, attrs)
	m.connectionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordConnectionError records a failed WebSocket upgrade or handshake.
func (m *OTelMetrics) RecordConnectionError(ctx context.Context, errorType string, err error) {
	m.connectionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", errorType),
		attribute.String("error", err.Error()),
	))
}

// RecordMessageSent records a message delivered to one client.
func (m *OTelMetrics) RecordMessageSent(ctx context.Context, messageType, clientID string, size int64) {
	attrs := metric.WithAttributes(
		attribute.String("direction", "outbound"),
		attribute.String("message_type", messageType),
		attribute.String("client_id", clientID),
	)

	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, size, attrs)
}

// RecordMessageReceived records a message read from one client.
func (m *OTelMetrics) RecordMessageReceived(ctx context.Context, messageType, clientID string, size int64) {
	attrs := metric.WithAttributes(
		attribute.String("direction", "inbound"),
		attribute.String("message_type", messageType),
		attribute.String("client_id", clientID),
	)

	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, size, attrs)
}

// RecordMessageError records a delivery that failed on the socket.
func (m *OTelMetrics) RecordMessageError(ctx context.Context, messageType, clientID, errorType string) {
	m.messageErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message_type", messageType),
		attribute.String("client_id", clientID),
		attribute.String("error_type", errorType),
	))
}

// RecordQueueDepth records how many events sit in the broadcast queue.
func (m *OTelMetrics) RecordQueueDepth(ctx context.Context, depth int64, queueType string) {
	m.queueDepth.Record(ctx, depth, metric.WithAttributes(
		attribute.String("queue_type", queueType),
	))
}

// RecordDroppedMessage records an event the full queue forced the hub to drop.
func (m *OTelMetrics) RecordDroppedMessage(ctx context.Context, messageType, reason string) {
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message_type", messageType),
		attribute.String("drop_reason", reason),
	))
}

// RecordBroadcast records one fan-out and how many clients it reached.
func (m *OTelMetrics) RecordBroadcast(ctx context.Context, messageType string, clientCount, successCount, failCount int64) {
	m.broadcastOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message_type", messageType),
		attribute.Int64("client_count", clientCount),
		attribute.Int64("success_count", successCount),
		attribute.Int64("fail_count", failCount),
	))
}

// RecordClientCount records the hub's registered client total.
func (m *OTelMetrics) RecordClientCount(ctx context.Context, count int64) {
	m.clientCount.Record(ctx, count)
}

// The hub and clients read the shared instance through GetOTelMetrics, so a
// nil check at each call site keeps the CLIs free of a meter provider.
var globalOTelMetrics *OTelMetrics

// InitOTelMetrics creates the shared instrument set. The server calls it once
// after the meter provider is up.
func InitOTelMetrics() error {
	metrics, err := NewOTelMetrics()
	if err != nil {
		return err
	}
	globalOTelMetrics = metrics
	return nil
}

// GetOTelMetrics returns the shared instance, nil before InitOTelMetrics.
func GetOTelMetrics() *OTelMetrics {
	return globalOTelMetrics
}
