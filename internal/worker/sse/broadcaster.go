// Package sse streams named Server-Sent Events to dashboard clients.
package sse

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// WriteTimeout is the timeout for writing to SSE clients.
	// Prevents blocking on stale connections.
	WriteTimeout = 2 * time.Second

	// EventHello is sent once to every new client.
	EventHello = "hello"
)

// Client represents a connected SSE client. Writes to one client are
// serialized.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string

	writeMu sync.Mutex
	once    sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.Done) })
}

// Broadcaster fans out events to all connected clients and remembers the
// last frame of every event so that late joiners start with current data.
type Broadcaster struct {
	clients map[string]*Client
	last    map[string][]byte
	order   []string // event names in first-publish order
	mu      sync.RWMutex
	nextID  int
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*Client),
		last:    make(map[string][]byte),
	}
}

// Frame encodes one SSE frame.
func Frame(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(payload) + len(event) + 16)
	if event != "" {
		buf.WriteString("event: ")
		buf.WriteString(event)
		buf.WriteByte('\n')
	}
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// AddClient registers a new SSE client connection.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[id] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", id).
		Int("totalClients", clientCount).
		Msg("SSE client connected")

	return client, nil
}

// RemoveClient removes a client connection. It is safe to call twice.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	_, existed := b.clients[client.ID]
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	client.close()

	if existed {
		log.Debug().
			Str("clientId", client.ID).
			Int("totalClients", clientCount).
			Msg("SSE client disconnected")
	}
}

// Publish sends event with data to every client and caches the frame.
func (b *Broadcaster) Publish(event string, data any) error {
	frame, err := Frame(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal SSE data")
		return err
	}

	b.mu.Lock()
	if _, seen := b.last[event]; !seen {
		b.order = append(b.order, event)
	}
	b.last[event] = frame
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.Unlock()

	if len(clients) == 0 {
		return nil
	}

	deadClientsCh := make(chan *Client, len(clients))
	var wg sync.WaitGroup
	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !b.writeToClient(c, frame) {
				deadClientsCh <- c
			}
		}(client)
	}

	wg.Wait()
	close(deadClientsCh)

	for c := range deadClientsCh {
		b.RemoveClient(c)
	}
	return nil
}

// writeToClient writes a frame with a timeout and reports success.
func (b *Broadcaster) writeToClient(client *Client, frame []byte) bool {
	done := make(chan error, 1)

	go func() {
		client.writeMu.Lock()
		defer client.writeMu.Unlock()
		if _, err := client.Writer.Write(frame); err != nil {
			done <- err
			return
		}
		client.Flusher.Flush()
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().
				Str("clientId", client.ID).
				Err(err).
				Msg("Failed to write to SSE client, marking for removal")
			return false
		}
		return true
	case <-time.After(WriteTimeout):
		log.Warn().
			Str("clientId", client.ID).
			Dur("timeout", WriteTimeout).
			Msg("SSE write timed out, marking client for removal")
		return false
	case <-client.Done:
		return true
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// cached returns the last frame of every event in first-publish order.
func (b *Broadcaster) cached() [][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([][]byte, 0, len(b.order))
	for _, event := range b.order {
		out = append(out, b.last[event])
	}
	return out
}

// HandleSSE serves one SSE connection until the request context ends.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	hello, _ := Frame(EventHello, map[string]string{"clientId": client.ID})
	client.writeMu.Lock()
	_, _ = w.Write(hello)
	for _, frame := range b.cached() {
		_, _ = w.Write(frame)
	}
	client.Flusher.Flush()
	client.writeMu.Unlock()

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}
