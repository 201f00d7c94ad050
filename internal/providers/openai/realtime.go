package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"voicebar/internal/domain"
	"voicebar/internal/metrics"
	"voicebar/internal/ports"
)

// Config controls OpenAI API access.
type Config struct {
	APIKey        string
	APIBaseURL    string
	RealtimeModel string
	BatchModel    string
	Prompt        string
	Language      string
}

// VADOptions tunes the server-side voice activity segmentation requested in
// the session update.
type VADOptions struct {
	Threshold       float64
	PrefixPadding   time.Duration
	SilenceDuration time.Duration
}

// RealtimeClient implements ports.RealtimeStream against the OpenAI realtime
// transcription endpoint. One logical connection at a time; Connect while
// open tears down the previous connection first.
type RealtimeClient struct {
	cfg     Config
	vad     VADOptions
	logger  *log.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	state domain.ConnectionState
	conn  *streamConn
}

func NewRealtimeClient(cfg Config, vad VADOptions, logger *log.Logger, m *metrics.Metrics) *RealtimeClient {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.RealtimeModel == "" {
		cfg.RealtimeModel = "gpt-4o-transcribe"
	}
	if vad.Threshold <= 0 || vad.Threshold > 1 {
		vad.Threshold = 0.5
	}
	if vad.PrefixPadding <= 0 {
		vad.PrefixPadding = 300 * time.Millisecond
	}
	if vad.SilenceDuration <= 0 {
		vad.SilenceDuration = 500 * time.Millisecond
	}
	return &RealtimeClient{
		cfg:     cfg,
		vad:     vad,
		logger:  logger,
		metrics: m,
		state:   domain.ConnStateIdle,
	}
}

// streamConn is the per-connection state. The read loop is the only writer of
// events; signaling channels are closed exactly once.
type streamConn struct {
	ws           *websocket.Conn
	out          chan outbound
	events       chan domain.StreamEvent
	stop         chan struct{}
	closed       chan struct{}
	completed    chan struct{}
	dispatchDone chan struct{}

	completeOnce  sync.Once
	teardownOnce  sync.Once
	sendFailOnce  sync.Once
	stopRequested atomic.Bool
	dead          atomic.Bool
}

type outbound struct {
	commit bool
	audio  []byte
}

func (conn *streamConn) teardown() {
	conn.teardownOnce.Do(func() {
		close(conn.stop)
		_ = conn.ws.Close()
		close(conn.closed)
	})
}

func (conn *streamConn) markCompleted() {
	conn.completeOnce.Do(func() { close(conn.completed) })
}

// Connect dials the realtime endpoint, sends the session configuration, and
// starts delivering inbound events to handler. On failure the state returns
// to idle and no events fire.
func (c *RealtimeClient) Connect(ctx context.Context, handler ports.StreamHandler) error {
	if handler == nil {
		return errors.New("stream handler is required")
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("OPENAI_API_KEY is not configured")
	}

	c.Disconnect()

	wsURL, err := buildRealtimeURL(c.cfg.APIBaseURL)
	if err != nil {
		return err
	}

	c.setState(domain.ConnStateConnecting)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		c.setState(domain.ConnStateIdle)
		return fmt.Errorf("connect realtime endpoint: %w", err)
	}

	if err := ws.WriteJSON(newSessionUpdate(c.cfg, c.vad)); err != nil {
		_ = ws.Close()
		c.setState(domain.ConnStateIdle)
		return fmt.Errorf("send session update: %w", err)
	}

	conn := &streamConn{
		ws:           ws,
		out:          make(chan outbound, 64),
		events:       make(chan domain.StreamEvent, 64),
		stop:         make(chan struct{}),
		closed:       make(chan struct{}),
		completed:    make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}

	c.mu.Lock()
	c.conn = conn
	c.state = domain.ConnStateOpen
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.writeLoop(conn)
	go c.dispatchLoop(conn, handler)

	c.logger.Debug("realtime connection open", "url", wsURL, "model", c.cfg.RealtimeModel)
	return nil
}

// SendAudioChunk hands one PCM chunk to the connection. It never blocks the
// caller: the chunk is queued for the write loop and dropped if the queue is
// full or the connection is unusable.
func (c *RealtimeClient) SendAudioChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	conn := c.openConn()
	if conn == nil || conn.dead.Load() {
		return
	}

	copied := append([]byte(nil), chunk...)
	select {
	case conn.out <- outbound{audio: copied}:
		c.metrics.StreamSends.Inc()
	default:
		// Dropping a chunk beats stalling the capture path.
	}
}

// Finalize asks the server to close out the current segment boundary and emit
// final results. No-op unless the connection is open.
func (c *RealtimeClient) Finalize() {
	conn := c.openConn()
	if conn == nil || conn.dead.Load() {
		return
	}
	select {
	case conn.out <- outbound{commit: true}:
	default:
		c.logger.Warn("commit dropped, outbound queue full")
	}
}

// WaitForCompletion blocks until a terminal completed event has been
// delivered to the handler since the last Connect, the connection goes away,
// or the timeout elapses. The timeout does not close the connection. A true
// return guarantees the handler already processed the completed event.
func (c *RealtimeClient) WaitForCompletion(timeout time.Duration) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}

	select {
	case <-conn.completed:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-conn.completed:
		return true
	case <-conn.closed:
	case <-timer.C:
	}

	// Completion may have raced the other signal.
	select {
	case <-conn.completed:
		return true
	default:
		return false
	}
}

// Disconnect cancels the receive loop, closes the transport, and resolves any
// pending WaitForCompletion with false. Idempotent.
func (c *RealtimeClient) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	if conn != nil {
		c.state = domain.ConnStateClosing
	}
	c.mu.Unlock()
	if conn == nil {
		return
	}

	conn.stopRequested.Store(true)
	conn.teardown()
	<-conn.dispatchDone
	c.setState(domain.ConnStateIdle)
}

func (c *RealtimeClient) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *RealtimeClient) openConn() *streamConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.ConnStateOpen {
		return nil
	}
	return c.conn
}

func (c *RealtimeClient) setState(state domain.ConnectionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// finishConn moves the state machine only if conn is still the current
// connection; a newer Connect must not be clobbered by a stale loop.
func (c *RealtimeClient) finishConn(conn *streamConn, state domain.ConnectionState) {
	c.mu.Lock()
	if c.conn == conn {
		c.state = state
	}
	c.mu.Unlock()
}

func (c *RealtimeClient) readLoop(conn *streamConn) {
	defer close(conn.events)

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			if !conn.stopRequested.Load() {
				conn.dead.Store(true)
				c.finishConn(conn, domain.ConnStateClosedWithError)
				conn.events <- domain.StreamEvent{
					Kind:    domain.StreamEventDisconnected,
					Message: disconnectMessage(err),
				}
			}
			conn.teardown()
			return
		}

		event, ok := parseServerEvent(payload)
		if !ok {
			continue
		}
		c.metrics.StreamEvents.WithLabelValues(string(event.Kind)).Inc()

		if event.Kind == domain.StreamEventFailed {
			conn.dead.Store(true)
		}
		conn.events <- event
	}
}

func (c *RealtimeClient) writeLoop(conn *streamConn) {
	for {
		select {
		case msg := <-conn.out:
			var payload any
			if msg.commit {
				payload = commitMessage{Type: "input_audio_buffer.commit"}
			} else {
				payload = appendMessage{
					Type:  "input_audio_buffer.append",
					Audio: base64.StdEncoding.EncodeToString(msg.audio),
				}
			}
			if err := conn.ws.WriteJSON(payload); err != nil {
				conn.dead.Store(true)
				conn.sendFailOnce.Do(func() {
					c.logger.Warn("realtime send failed", "err", err)
				})
				// The read loop surfaces this as a disconnected event.
				conn.teardown()
				return
			}
		case <-conn.stop:
			return
		}
	}
}

// dispatchLoop is the single consumer of inbound events; the handler sees
// them one at a time in receive order. Completion is signaled only after the
// handler has returned for the completed event, so a waiter woken by
// WaitForCompletion always observes the handler's effects.
func (c *RealtimeClient) dispatchLoop(conn *streamConn, handler ports.StreamHandler) {
	defer close(conn.dispatchDone)
	for event := range conn.events {
		handler(event)
		if event.Kind == domain.StreamEventCompleted {
			conn.markCompleted()
		}
	}
}

func disconnectMessage(err error) string {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return "connection closed by remote"
	}
	return err.Error()
}

func buildRealtimeURL(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	realtimeURL, err := url.Parse(base + "/realtime")
	if err != nil {
		return "", fmt.Errorf("invalid realtime API base URL: %w", err)
	}

	query := realtimeURL.Query()
	query.Set("intent", "transcription")
	realtimeURL.RawQuery = query.Encode()
	return realtimeURL.String(), nil
}
