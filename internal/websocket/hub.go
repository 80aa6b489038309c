// Package websocket pushes live job updates to clients subscribed on
// /ws/jobs/:jobId. The worker publishes every state-machine transition
// plus a final result or error message.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/slavkostrov/playlist-selection/internal/model"
)

const (
	pingInterval = 30 * time.Second
	sendBuffer   = 256
)

// subscriber is one open connection listening on a single job.
type subscriber struct {
	jobID string
	conn  *websocket.Conn
	send  chan []byte
}

// envelope is a marshaled message addressed to one job's subscribers.
type envelope struct {
	jobID string
	data  []byte
}

// Hub fans job updates out to the subscribers of each job.
type Hub struct {
	subscribers map[string]map[*subscriber]bool

	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan envelope

	mu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]bool),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		broadcast:   make(chan envelope, sendBuffer),
	}
}

// Run owns the subscriber registry. Must run on its own goroutine
// before any broadcast.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if h.subscribers[sub.jobID] == nil {
				h.subscribers[sub.jobID] = make(map[*subscriber]bool)
			}
			h.subscribers[sub.jobID][sub] = true
			h.mu.Unlock()
			log.Printf("Subscriber added for job %s", sub.jobID)

		case sub := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.subscribers[sub.jobID]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.send)
					if len(subs) == 0 {
						delete(h.subscribers, sub.jobID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Subscriber removed for job %s", sub.jobID)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for sub := range h.subscribers[msg.jobID] {
				select {
				case sub.send <- msg.data:
				default:
					// Slow consumer, drop the connection.
					close(sub.send)
					delete(h.subscribers[msg.jobID], sub)
				}
			}
			h.mu.Unlock()
		}
	}
}

// publish marshals v and queues it for every subscriber of jobID.
func (h *Hub) publish(jobID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal hub message for job %s: %v", jobID, err)
		return
	}
	h.broadcast <- envelope{jobID: jobID, data: data}
}

// BroadcastStatus pushes a job state-machine transition.
func (h *Hub) BroadcastStatus(jobID string, status model.JobStatus) {
	h.publish(jobID, model.WSStatusMessage{
		Type:   model.WSMessageTypeStatus,
		JobID:  jobID,
		Status: status,
	})
}

// BroadcastComplete pushes the final result of a completed job.
func (h *Hub) BroadcastComplete(jobID string, result interface{}) {
	h.publish(jobID, model.WSCompleteMessage{
		Type:   model.WSMessageTypeComplete,
		JobID:  jobID,
		Result: result,
	})
}

// BroadcastError pushes a terminal failure.
func (h *Hub) BroadcastError(jobID string, code, message string) {
	h.publish(jobID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{Code: code, Message: message},
	})
}

// HandleConnection serves one subscriber until the peer disconnects.
// Blocks, so it is called from the fiber websocket handler goroutine.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	sub := &subscriber{
		jobID: jobID,
		conn:  c,
		send:  make(chan []byte, sendBuffer),
	}

	h.register <- sub
	defer func() { h.unregister <- sub }()

	go writeLoop(c, sub.send)

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on job %s: %v", jobID, err)
			}
			return
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			data, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			sub.send <- data
		}
	}
}

// writeLoop drains the send channel onto the wire and keeps the
// connection alive with periodic pings.
func writeLoop(c *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-send:
			if !ok {
				c.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
