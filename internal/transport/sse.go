package transport

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// SSEDialer opens the fallback, one-way progress stream at
// http(s)://<backend>/sse/mix/{session_id}.
//
// The stream delivers the same frame taxonomy as the WebSocket; delivery
// resumes from the backend's present state, so messages missed during a
// handoff are not replayed.
type SSEDialer struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewSSEDialer creates a dialer against the backend base URL. The client
// must not have a response timeout set; the stream stays open for the whole
// session.
func NewSSEDialer(baseURL string, client *http.Client, logger *log.Logger) *SSEDialer {
	if client == nil {
		client = &http.Client{}
	}
	return &SSEDialer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

func (d *SSEDialer) Name() string { return "sse" }

// Dial issues the streaming GET and starts the scan loop.
func (d *SSEDialer) Dial(ctx context.Context, sessionID string) (Transport, error) {
	endpoint := d.baseURL + "/sse/mix/" + sessionID

	// The request context must outlive Dial; cancellation happens via
	// Close, not via the dial context.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("sse dial %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("sse dial %s: status %d", endpoint, resp.StatusCode)
	}

	t := &sseTransport{
		resp:   resp,
		cancel: cancel,
		msgs:   make(chan Message, 16),
		done:   make(chan struct{}),
		logger: d.logger.With("transport", d.Name(), "session", sessionID),
	}
	go t.scanLoop()
	return t, nil
}

type sseTransport struct {
	resp   *http.Response
	cancel context.CancelFunc
	msgs   chan Message
	logger *log.Logger

	mu     sync.Mutex
	err    error
	closed bool
	done   chan struct{}
}

func (t *sseTransport) Messages() <-chan Message { return t.msgs }

func (t *sseTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *sseTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()

	t.cancel()
	return t.resp.Body.Close()
}

// scanLoop reads the event stream line by line. Event payloads arrive on
// "data:" lines; a blank line terminates an event. Comment lines (":") are
// keep-alives and are skipped.
func (t *sseTransport) scanLoop() {
	defer close(t.msgs)
	defer t.resp.Body.Close()

	scanner := bufio.NewScanner(t.resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	flush := func() bool {
		if data.Len() == 0 {
			return true
		}
		raw := data.String()
		data.Reset()

		msg, err := decodeFrame([]byte(raw))
		if err != nil {
			t.logger.Warn("dropping event", "error", err)
			return true
		}
		select {
		case t.msgs <- msg:
			return true
		case <-t.done:
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !flush() {
				return
			}
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:/id:/retry: fields are unused by the backend
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		t.finish(err)
	}
}

func (t *sseTransport) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.err = err
}
