package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"staffpulse/internal/infrastructure"
	"staffpulse/pkg/contracts/events"
)

// broadcastQueueSize bounds the fan-out queue. Events are dropped, not
// blocked on, when the queue is full.
const broadcastQueueSize = 64

// Hub maintains the set of connected clients and fans report events out
// to them. Clients that cannot keep up are disconnected rather than
// allowed to stall the broadcast loop.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections  int64
	activeConnections int64
	messagesSent      int64

	quit        chan struct{}
	running     bool
	metricsQuit chan struct{}
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:   make(chan []byte, broadcastQueueSize),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		logger:      logger,
		quit:        make(chan struct{}),
		metricsQuit: make(chan struct{}),
	}
}

// Start starts the hub's goroutines.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
	go h.reportMetrics()
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.activeConnections = int64(count)
			h.mu.Unlock()

			ctx := context.Background()
			if client.traceID != "" {
				ctx = infrastructure.WithTraceID(ctx, client.traceID)
			}

			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			GetMetrics().RecordConnection()
			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordConnection(ctx, client.id, client.remoteAddr)
				otelMetrics.RecordClientCount(ctx, int64(count))
			}

			h.sendWelcome(ctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.activeConnections = int64(count)
				h.mu.Unlock()

				ctx := context.Background()
				if client.traceID != "" {
					ctx = infrastructure.WithTraceID(ctx, client.traceID)
				}

				h.logger.InfoContext(ctx, "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))

				GetMetrics().RecordDisconnection(time.Since(client.connectedAt))
				if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
					otelMetrics.RecordDisconnection(ctx, client.id, time.Since(client.connectedAt), "normal")
					otelMetrics.RecordClientCount(ctx, int64(count))
				}
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			successCount := 0
			failCount := 0

			for _, client := range clients {
				select {
				case client.send <- message:
					successCount++
				default:
					failCount++
					// Slow consumer, cut it loose.
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					h.logger.Warn("Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			h.mu.Lock()
			h.messagesSent += int64(successCount)
			h.activeConnections = int64(len(h.clients))
			h.mu.Unlock()

			h.logger.Debug("Broadcast delivered",
				slog.Int("client_count", len(clients)),
				slog.Int("message_size", len(message)),
				slog.Int("fail_count", failCount))

			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordBroadcast(context.Background(), "broadcast",
					int64(len(clients)), int64(successCount), int64(failCount))
			}
		}
	}
}

// sendWelcome tells the newly registered client it is connected.
func (h *Hub) sendWelcome(ctx context.Context, client *Client) {
	welcome := events.NewMessage(events.MessageTypeConnectionStatus, events.ConnectionStatus{
		Status:   events.StatusConnected,
		ClientID: client.id,
		Message:  "Connected to the weekly report stream",
	})
	welcome.TraceID = client.traceID

	jsonData, err := json.Marshal(welcome)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling welcome message",
			slog.String("error", err.Error()))
		return
	}

	select {
	case client.send <- jsonData:
		h.logger.DebugContext(ctx, "Sent connection status to client",
			slog.String("client_id", client.id))
	default:
		h.logger.WarnContext(ctx, "Failed to send connection status, client buffer full",
			slog.String("client_id", client.id))
	}
}

// BroadcastEvent wraps a payload in the standard envelope and fans it out
// to every connected client.
func (h *Hub) BroadcastEvent(msgType events.MessageType, data interface{}) {
	h.BroadcastEventWithTrace(msgType, data, "")
}

// BroadcastEventWithTrace is BroadcastEvent carrying a trace ID so clients
// can correlate events with the request that caused them.
func (h *Hub) BroadcastEventWithTrace(msgType events.MessageType, data interface{}, traceID string) {
	msg := events.NewMessage(msgType, data)
	msg.TraceID = traceID

	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(msgType)))
		return
	}

	h.enqueue(jsonData, string(msgType))
}

// BroadcastMessage fans out a pre-built envelope.
func (h *Hub) BroadcastMessage(msg events.Message) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(msg.Type)))
		return
	}
	h.enqueue(jsonData, string(msg.Type))
}

func (h *Hub) enqueue(jsonData []byte, msgType string) {
	select {
	case h.broadcast <- jsonData:
	default:
		GetMetrics().RecordDroppedMessage()
		if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
			otelMetrics.RecordDroppedMessage(context.Background(), msgType, "queue_full")
		}
		h.logger.Warn("Broadcast queue full, dropping event",
			slog.String("event_type", msgType))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub and closes all client connections.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	close(h.metricsQuit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// reportMetrics periodically logs hub health.
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.metricsQuit:
			h.logger.Info("Metrics reporting shutting down")
			return

		case <-ticker.C:
			h.mu.RLock()
			activeClients := len(h.clients)
			totalConnections := h.totalConnections
			messagesSent := h.messagesSent
			h.mu.RUnlock()

			GetMetrics().RecordQueueDepth(int64(len(h.broadcast)))
			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordQueueDepth(context.Background(), int64(len(h.broadcast)), "broadcast")
			}

			h.logger.Info("WebSocket hub metrics",
				slog.Int("active_clients", activeClients),
				slog.Int64("total_connections", totalConnections),
				slog.Int64("messages_sent", messagesSent),
				slog.Int("broadcast_queue", len(h.broadcast)),
			)
		}
	}
}

// GetHubMetrics returns current hub counters for the health endpoints.
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}
