// Package sse streams supervisor events to HTTP clients as server-sent
// events.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/netagent/netagent/core/types"
	"github.com/valyala/fasthttp"
)

type (
	// Listener is the receiving end of a stream.
	Listener interface {
		ID() string
		Chan() chan Envelope
	}

	// Envelope is anything that can be written on the stream.
	Envelope interface {
		String() string
	}

	Manager interface {
		Send(message Envelope)
		Handle(ctx *fiber.Ctx, cl Listener)
		Clients() []string
	}
)

type Client struct {
	id string
	ch chan Envelope
}

func NewClient(id string) Listener {
	return &Client{
		id: id,
		ch: make(chan Envelope, 50),
	}
}

func (c *Client) ID() string          { return c.id }
func (c *Client) Chan() chan Envelope { return c.ch }

type Message struct {
	Event string
	Time  time.Time
	Data  string
}

func NewMessage(data string) *Message {
	return &Message{
		Data: data,
		Time: time.Now(),
	}
}

func (m *Message) WithEvent(event string) Envelope {
	m.Event = event
	return m
}

func (m *Message) String() string {
	sb := strings.Builder{}

	if m.Event != "" {
		sb.WriteString(fmt.Sprintf("event: %s\n", m.Event))
	}
	sb.WriteString(fmt.Sprintf("data: %v\n\n", m.Data))

	return sb.String()
}

// StateEvent is the payload of a "message" event.
type StateEvent struct {
	RequestID string            `json:"request_id"`
	Type      types.MessageType `json:"type"`
	AgentID   string            `json:"agent_id"`
	Content   string            `json:"content"`
	Time      time.Time         `json:"time"`
}

// NewStateMessage encodes a message recorded on a request state.
func NewStateMessage(state *types.State, m types.Message) Envelope {
	msg := NewMessage("")
	data, err := json.Marshal(StateEvent{
		RequestID: state.ID,
		Type:      m.Type,
		AgentID:   m.AgentID,
		Content:   m.Content,
		Time:      msg.Time,
	})
	if err != nil {
		data = []byte(fmt.Sprintf(`{"request_id":%q}`, state.ID))
	}
	msg.Data = string(data)
	return msg.WithEvent("message")
}

// broadcastManager delivers every message to the clients and the history
// in Send order. Send never blocks on a client: a full client channel drops
// the message for that client only.
type broadcastManager struct {
	mu          sync.Mutex
	clients     map[string]Listener
	history     []Envelope
	historySize int
}

// NewManager returns a manager replaying the last ten messages to every new
// client.
func NewManager() Manager {
	return &broadcastManager{
		clients:     map[string]Listener{},
		historySize: 10,
	}
}

func (manager *broadcastManager) Send(message Envelope) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.history = append(manager.history, message)
	if len(manager.history) > manager.historySize {
		manager.history = manager.history[len(manager.history)-manager.historySize:]
	}

	for _, client := range manager.clients {
		select {
		case client.Chan() <- message:
		default:
			// slow client, drop
		}
	}
}

// subscribe registers cl and queues the history for it in one step, so no
// message is missed or delivered twice.
func (manager *broadcastManager) subscribe(cl Listener) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.clients[cl.ID()] = cl
	for _, msg := range manager.history {
		select {
		case cl.Chan() <- msg:
		default:
			return
		}
	}
}

func (manager *broadcastManager) unregister(clientID string) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	delete(manager.clients, clientID)
}

// Handle streams to cl until the client goes away.
func (manager *broadcastManager) Handle(c *fiber.Ctx, cl Listener) {
	ctx := c.Context()

	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	manager.subscribe(cl)

	var once sync.Once
	cleanup := func() {
		once.Do(func() { manager.unregister(cl.ID()) })
	}

	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cleanup()

		fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case msg := <-cl.Chan():
				if _, err := fmt.Fprint(w, msg.String()); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}))
}

func (manager *broadcastManager) Clients() []string {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	clients := make([]string, 0, len(manager.clients))
	for id := range manager.clients {
		clients = append(clients, id)
	}
	return clients
}
