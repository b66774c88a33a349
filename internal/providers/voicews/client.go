// Package voicews talks to a remote conversational voice assistant over a
// websocket: JSON control frames in both directions, PCM audio as binary frames.
package voicews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"screenflow/internal/audio"
	"screenflow/internal/domain"
	"screenflow/internal/logger"
	"screenflow/internal/ports"
)

const defaultBaseURL = "https://api.vapi.ai"

// ErrMissingAPIKey is returned when the client was built without a credential.
var ErrMissingAPIKey = errors.New("voice service key is not configured")

// ErrCallInProgress is returned by Start while a connection is open.
var ErrCallInProgress = errors.New("a call is already in progress")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("voice client is closed")

// Config controls the remote voice service connection.
type Config struct {
	APIKey     string
	APIBaseURL string

	// Microphone is optional; without it the call runs receive-only.
	Microphone ports.AudioCapture
	Audio      ports.AudioConfig
	ChunkSize  int

	// Playback receives assistant audio. Nil discards it.
	Playback io.Writer
}

// Client implements ports.VoiceClient. One client serves many calls, one at a time.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	log    *zap.Logger

	events    chan domain.VoiceEvent
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	call *call

	muted atomic.Bool
}

type call struct {
	id      uint64
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}

	micMu   sync.Mutex
	mic     ports.AudioSession
	micDone chan struct{}

	ended atomic.Bool
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	return &Client{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		log:    logger.OrNop(log).Named("voicews"),
		events: make(chan domain.VoiceEvent, 64),
		closed: make(chan struct{}),
	}
}

// Events is closed by Close.
func (c *Client) Events() <-chan domain.VoiceEvent {
	return c.events
}

// Start dials the service and asks it to begin a call with assistant.
// Call progress is reported on Events, never through the return value; every
// event of this call carries callID.
func (c *Client) Start(ctx context.Context, callID uint64, assistant domain.AssistantSpec) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return ErrMissingAPIKey
	}
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	if c.call != nil {
		c.mu.Unlock()
		return ErrCallInProgress
	}
	c.mu.Unlock()

	target, err := callURL(c.cfg.APIBaseURL)
	if err != nil {
		return err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.cfg.APIKey)

	conn, _, err := c.dialer.DialContext(ctx, target, headers)
	if err != nil {
		return fmt.Errorf("connect voice service: %w", err)
	}

	active := &call{id: callID, conn: conn, done: make(chan struct{})}
	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	default:
	}
	if c.call != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrCallInProgress
	}
	c.call = active
	c.mu.Unlock()
	c.muted.Store(false)

	if err := active.writeJSON(startFrame{Type: "start", AssistantID: assistant.AssistantID, Assistant: assistant.Inline}); err != nil {
		c.finish(active)
		return fmt.Errorf("send start: %w", err)
	}

	go c.readLoop(active)
	return nil
}

// Stop asks the service to hang up. Without an open call it is a no-op.
func (c *Client) Stop() error {
	active := c.current()
	if active == nil {
		return nil
	}
	c.stopMicrophone(active)
	if err := active.writeJSON(controlFrame{Type: "stop"}); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	return nil
}

// SetMuted stops forwarding microphone audio and tells the service.
func (c *Client) SetMuted(muted bool) error {
	c.muted.Store(muted)
	active := c.current()
	if active == nil {
		return nil
	}
	if err := active.writeJSON(controlFrame{Type: "mute", Muted: &muted}); err != nil {
		return fmt.Errorf("send mute: %w", err)
	}
	return nil
}

// Close drops any open call and closes Events.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.closed)
		active := c.call
		c.mu.Unlock()

		if active != nil {
			c.stopMicrophone(active)
			_ = active.conn.Close()
			<-active.done
		}
		close(c.events)
	})
	return nil
}

func (c *Client) current() *call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.call
}

func (c *Client) readLoop(active *call) {
	defer c.finish(active)

	for {
		kind, payload, err := active.conn.ReadMessage()
		if err != nil {
			if !active.ended.Load() {
				if isNormalClose(err) {
					c.emit(active, domain.VoiceEvent{Type: domain.VoiceEventCallEnd})
				} else {
					c.emit(active, domain.VoiceEvent{Type: domain.VoiceEventError, Err: err.Error()})
				}
			}
			return
		}

		if kind == websocket.BinaryMessage {
			if c.cfg.Playback != nil {
				if _, err := c.cfg.Playback.Write(payload); err != nil {
					c.log.Debug("writing assistant audio", zap.Error(err))
				}
			}
			continue
		}

		var frame serverFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.log.Debug("dropping malformed frame", zap.Error(err))
			continue
		}
		event, ok := frame.event()
		if !ok {
			continue
		}

		switch event.Type {
		case domain.VoiceEventCallStart:
			c.startMicrophone(active)
		case domain.VoiceEventCallEnd, domain.VoiceEventError:
			active.ended.Store(true)
			c.stopMicrophone(active)
		}
		c.emit(active, event)

		if active.ended.Load() {
			return
		}
	}
}

func (c *Client) finish(active *call) {
	c.stopMicrophone(active)
	_ = active.conn.Close()

	c.mu.Lock()
	if c.call == active {
		c.call = nil
	}
	c.mu.Unlock()

	select {
	case <-active.done:
	default:
		close(active.done)
	}
}

// emit blocks until the event is consumed or the client closes, so call-end
// is never dropped.
func (c *Client) emit(active *call, event domain.VoiceEvent) {
	event.CallID = active.id
	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.events <- event:
	case <-c.closed:
	}
}

func (c *Client) startMicrophone(active *call) {
	if c.cfg.Microphone == nil {
		return
	}

	mic, err := c.cfg.Microphone.Start(context.Background(), c.cfg.Audio)
	if err != nil {
		c.log.Warn("starting call microphone", zap.Error(err))
		return
	}

	active.micMu.Lock()
	if active.mic != nil {
		active.micMu.Unlock()
		_ = mic.Stop()
		return
	}
	active.mic = mic
	active.micDone = make(chan struct{})
	done := active.micDone
	active.micMu.Unlock()

	go func() {
		defer close(done)
		err := audio.Pump(mic, func(chunk []byte) error {
			if c.muted.Load() {
				return nil
			}
			return active.writeBinary(chunk)
		}, c.cfg.ChunkSize)
		if err != nil && !active.ended.Load() {
			c.log.Warn("call microphone stopped", zap.Error(err))
		}
	}()
}

func (c *Client) stopMicrophone(active *call) {
	active.micMu.Lock()
	mic, done := active.mic, active.micDone
	active.mic, active.micDone = nil, nil
	active.micMu.Unlock()

	if mic == nil {
		return
	}
	if err := mic.Stop(); err != nil {
		c.log.Debug("stopping call microphone", zap.Error(err))
	}
	<-done
}

func (a *call) writeJSON(v any) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteJSON(v)
}

func (a *call) writeBinary(chunk []byte) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func callURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(base), "/") + "/call/ws")
	if err != nil {
		return "", fmt.Errorf("invalid voice service base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid voice service base URL scheme %q", u.Scheme)
	}
	return u.String(), nil
}
