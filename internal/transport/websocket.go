package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// wsReadTimeout bounds the gap between frames. The backend heartbeats
	// every 30s, so a silent 45s window means the connection is dead.
	wsReadTimeout = 45 * time.Second

	wsWriteTimeout = 10 * time.Second
)

// WebSocketDialer opens the primary, bidirectional progress stream at
// ws(s)://<backend>/ws/mix/{session_id}.
type WebSocketDialer struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *log.Logger
}

// NewWebSocketDialer creates a dialer against the backend base URL
// (an http:// or https:// URL; the scheme is rewritten for WebSocket).
func NewWebSocketDialer(baseURL string, logger *log.Logger) *WebSocketDialer {
	return &WebSocketDialer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  logger,
	}
}

func (d *WebSocketDialer) Name() string { return "websocket" }

// Dial connects to the session's progress stream and starts the read loop.
func (d *WebSocketDialer) Dial(ctx context.Context, sessionID string) (Transport, error) {
	endpoint, err := wsEndpoint(d.baseURL, sessionID)
	if err != nil {
		return nil, err
	}

	conn, _, err := d.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", endpoint, err)
	}

	t := &wsTransport{
		conn:   conn,
		msgs:   make(chan Message, 16),
		done:   make(chan struct{}),
		logger: d.logger.With("transport", d.Name(), "session", sessionID),
	}
	go t.readLoop()
	return t, nil
}

// wsEndpoint rewrites the backend base URL into the per-session ws endpoint.
func wsEndpoint(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/mix/" + sessionID
	return u.String(), nil
}

type wsTransport struct {
	conn   *websocket.Conn
	msgs   chan Message
	logger *log.Logger

	mu     sync.Mutex
	err    error
	closed bool
	done   chan struct{}
}

func (t *wsTransport) Messages() <-chan Message { return t.msgs }

func (t *wsTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close tears down the connection. The read loop exits on the resulting
// read error; messages already buffered are discarded by closing done first
// so the consumer never observes a post-Close delivery.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()

	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
	return t.conn.Close()
}

// readLoop decodes frames until the connection drops or Close is called.
// Application-level {"type":"ping"} frames are answered with a pong and not
// surfaced; protocol pings are handled by gorilla's default pong handler.
func (t *wsTransport) readLoop() {
	defer close(t.msgs)

	for {
		t.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			t.finish(err)
			return
		}

		msg, err := decodeFrame(raw)
		if err != nil {
			t.logger.Warn("dropping frame", "error", err)
			continue
		}

		if msg.Type == TypePing {
			t.writePong()
			continue
		}

		select {
		case t.msgs <- msg:
		case <-t.done:
			return
		}
	}
}

func (t *wsTransport) writePong() {
	t.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := t.conn.WriteJSON(map[string]string{"type": TypePong}); err != nil {
		t.logger.Warn("pong write failed", "error", err)
	}
}

// finish records the loop's exit reason. A deliberate Close and a normal
// server-side closure both count as clean shutdown.
func (t *wsTransport) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.err = err
}
