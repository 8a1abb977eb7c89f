package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHandshakeTimeout = 10 * time.Second

// wireMessage is the JSON envelope used in both directions on the provider
// WebSocket. Type selects which fields are meaningful.
type wireMessage struct {
	Type string `json:"type"`

	// Client → provider.
	AssistantID string  `json:"assistantId,omitempty"`
	Muted       *bool   `json:"muted,omitempty"`
	Control     Control `json:"control,omitempty"`
	Content     string  `json:"content,omitempty"`

	// Provider → client.
	Role           string  `json:"role,omitempty"`
	TranscriptType string  `json:"transcriptType,omitempty"`
	Transcript     string  `json:"transcript,omitempty"`
	TurnID         string  `json:"turnId,omitempty"`
	Level          float64 `json:"level,omitempty"`
	Status         string  `json:"status,omitempty"`
	EndedReason    string  `json:"endedReason,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// WebSocketClient implements Transport over the provider's WebSocket wire
// protocol: JSON envelopes both ways, one reader goroutine fanning decoded
// events into a buffered channel.
type WebSocketClient struct {
	conn    *websocket.Conn
	events  chan Event
	done    chan struct{}
	closed  atomic.Bool
	writeMu sync.Mutex
	cancel  context.CancelFunc
	ctx     context.Context
}

// DialWebSocket connects to the provider at rawURL. The API key is sent as a
// bearer token during the handshake.
func DialWebSocket(ctx context.Context, rawURL, apiKey string) (*WebSocketClient, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse transport URL: %w", err)
	}

	headers := http.Header{}
	if apiKey != "" {
		headers.Set("Authorization", "Bearer "+apiKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			if len(body) > 0 {
				return nil, fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
			}
			return nil, fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &WebSocketClient{
		conn:   conn,
		events: make(chan Event, 100),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	go c.readLoop()

	return c, nil
}

func (c *WebSocketClient) readLoop() {
	defer func() {
		close(c.events)
		close(c.done)
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.deliver(Event{Type: EventError, Message: err.Error()})
			}
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		ev, ok := decodeEvent(msg)
		if !ok {
			continue
		}
		if !c.deliver(ev) {
			return
		}
	}
}

func decodeEvent(msg wireMessage) (Event, bool) {
	switch msg.Type {
	case "call-start":
		return Event{Type: EventCallStart}, true
	case "call-end":
		return Event{Type: EventCallEnd}, true
	case "speech-start":
		return Event{Type: EventSpeechStart, Role: Role(msg.Role)}, true
	case "speech-end":
		return Event{Type: EventSpeechEnd, Role: Role(msg.Role)}, true
	case "volume-level":
		return Event{Type: EventVolumeLevel, Level: msg.Level}, true
	case "transcript":
		return Event{
			Type: EventTranscript,
			Transcript: &Transcript{
				Role:   Role(msg.Role),
				Final:  msg.TranscriptType == "final",
				Text:   msg.Transcript,
				TurnID: msg.TurnID,
			},
		}, true
	case "status-update":
		return Event{Type: EventStatus, Status: msg.Status, EndedReason: msg.EndedReason}, true
	case "error":
		return Event{Type: EventError, Message: msg.Error}, true
	default:
		return Event{}, false
	}
}

func (c *WebSocketClient) deliver(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *WebSocketClient) writeJSON(msg wireMessage) error {
	if c.closed.Load() {
		return fmt.Errorf("transport closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Start implements Transport.
func (c *WebSocketClient) Start(ctx context.Context, assistantID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.writeJSON(wireMessage{Type: "start", AssistantID: assistantID})
}

// Stop implements Transport.
func (c *WebSocketClient) Stop() error {
	return c.writeJSON(wireMessage{Type: "stop"})
}

// SetMuted implements Transport.
func (c *WebSocketClient) SetMuted(muted bool) error {
	return c.writeJSON(wireMessage{Type: "set-muted", Muted: &muted})
}

// SendControl implements Transport.
func (c *WebSocketClient) SendControl(ctrl Control) error {
	return c.writeJSON(wireMessage{Type: "control", Control: ctrl})
}

// Say implements Transport.
func (c *WebSocketClient) Say(text string) error {
	return c.writeJSON(wireMessage{Type: "say", Content: text})
}

// Events implements Transport.
func (c *WebSocketClient) Events() <-chan Event {
	return c.events
}

// Close implements Transport.
func (c *WebSocketClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()

	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	return c.conn.Close()
}
