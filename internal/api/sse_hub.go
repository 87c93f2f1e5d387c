package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"duvidapp/internal"
	"duvidapp/internal/notify"

	"github.com/gin-gonic/gin"
)

// WorkspaceIDKey is the gin context key holding the caller's workspace id
const WorkspaceIDKey = "workspace_id"

// SSEClient represents a connected SSE client
type SSEClient struct {
	WorkspaceID string
	Channel     chan WorkspaceEvent
}

// WorkspaceEvent is a notification change streamed to one workspace's browsers
type WorkspaceEvent struct {
	WorkspaceID string       `json:"workspace_id"`
	Event       notify.Event `json:"event"`
}

// SSEHub fans notification events out to the browsers of each workspace
type SSEHub struct {
	clients    map[string]map[chan WorkspaceEvent]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan WorkspaceEvent
	done       chan struct{}
	closeOnce  sync.Once
	keepAlive  time.Duration
	logger     *internal.Logger
}

// NewSSEHub creates a new SSE hub and starts its dispatch loop
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	hub := &SSEHub{
		clients:    make(map[string]map[chan WorkspaceEvent]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan WorkspaceEvent, 100),
		done:       make(chan struct{}),
		keepAlive:  30 * time.Second,
		logger:     logger.WithField("component", "sse"),
	}

	go hub.run()
	return hub
}

// run processes SSE hub operations
func (h *SSEHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.WorkspaceID] == nil {
				h.clients[client.WorkspaceID] = make(map[chan WorkspaceEvent]bool)
			}
			h.clients[client.WorkspaceID][client.Channel] = true
			h.logger.Debug("[SSE] Client registered for workspace %s (total clients: %d)",
				client.WorkspaceID, len(h.clients[client.WorkspaceID]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.WorkspaceID]; exists {
				delete(clients, client.Channel)
				close(client.Channel)
				h.logger.Debug("[SSE] Client unregistered from workspace %s (remaining clients: %d)",
					client.WorkspaceID, len(clients))
				if len(clients) == 0 {
					delete(h.clients, client.WorkspaceID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.WorkspaceID] {
				select {
				case clientChan <- event:
				default:
					h.logger.Warn("[SSE] Client channel full for workspace %s, skipping event",
						event.WorkspaceID)
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast queues an event for every browser of a workspace
func (h *SSEHub) Broadcast(event WorkspaceEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("[SSE] Broadcast channel full, dropping event: %s", event.Event.Type)
	}
}

// Forward returns a notify subscriber that broadcasts to workspaceID
func (h *SSEHub) Forward(workspaceID string) func(notify.Event) {
	return func(ev notify.Event) {
		h.Broadcast(WorkspaceEvent{WorkspaceID: workspaceID, Event: ev})
	}
}

// HandleSSE streams the caller's workspace events. The workspace id is taken
// from the gin context.
func (h *SSEHub) HandleSSE(c *gin.Context) {
	workspaceID := c.GetString(WorkspaceIDKey)
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no workspace for this request"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	clientChan := make(chan WorkspaceEvent, 10)
	select {
	case h.register <- SSEClient{WorkspaceID: workspaceID, Channel: clientChan}:
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SSE hub registration failed"})
		return
	}

	defer func() {
		select {
		case h.unregister <- SSEClient{WorkspaceID: workspaceID, Channel: clientChan}:
		default:
		}
	}()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-clientChan:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event.Event)
			if err != nil {
				h.logger.Error("[SSE] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(string(event.Event.Type), string(payload))
			return true

		case <-time.After(h.keepAlive):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false

		case <-h.done:
			return false
		}
	})
}

// ActiveWorkspaces returns workspaces with connected clients
func (h *SSEHub) ActiveWorkspaces() []string {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// ClientCount returns the number of connected clients of a workspace
func (h *SSEHub) ClientCount(workspaceID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[workspaceID])
}

// Close stops the dispatch loop and ends open streams
func (h *SSEHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
