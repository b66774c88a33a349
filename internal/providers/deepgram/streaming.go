// Package deepgram streams microphone audio to Deepgram for dictation.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"screenflow/internal/domain"
	"screenflow/internal/ports"
)

const (
	defaultBaseURL  = "https://api.deepgram.com/v1"
	defaultModel    = "nova-2"
	defaultLanguage = "en-US"
)

// ErrMissingAPIKey is returned when no Deepgram key is configured.
var ErrMissingAPIKey = errors.New("DEEPGRAM_API_KEY is not configured")

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Provider implements ports.TranscriptionProvider.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewProvider(cfg Config) *Provider {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	return &Provider{cfg: cfg, dialer: websocket.DefaultDialer}
}

// Configured reports whether a key is present.
func (p *Provider) Configured() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if !p.Configured() {
		return nil, ErrMissingAPIKey
	}

	target, err := listenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, _, err := p.dialer.DialContext(ctx, target, headers)
	if err != nil {
		return nil, fmt.Errorf("connect deepgram websocket: %w", err)
	}

	session := newListenSession(conn)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-session.done:
		}
	}()
	return session, nil
}

type listenSession struct {
	conn *websocket.Conn

	events chan domain.TranscriptEvent
	audio  chan []byte
	done   chan struct{}
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error

	sendMu     sync.RWMutex
	sendClosed bool

	closeSendOnce sync.Once
	closeOnce     sync.Once
}

func newListenSession(conn *websocket.Conn) *listenSession {
	s := &listenSession{
		conn:   conn,
		events: make(chan domain.TranscriptEvent, 64),
		audio:  make(chan []byte, 32),
		done:   make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()
	return s
}

func (s *listenSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return errors.New("audio stream is already closed")
	}

	select {
	case s.audio <- append([]byte(nil), chunk...):
		return nil
	case <-s.done:
		if err := s.firstErr(); err != nil {
			return err
		}
		return errors.New("session closed")
	}
}

func (s *listenSession) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *listenSession) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *listenSession) Wait() error {
	<-s.done
	return s.firstErr()
}

func (s *listenSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.firstErr()
}

func (s *listenSession) firstErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// recordErr keeps the first non-close error. err may wrap the close error.
func (s *listenSession) recordErr(err error) {
	if err == nil || isNormalClose(err) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func isNormalClose(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	switch closeErr.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	default:
		return false
	}
}

func (s *listenSession) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.recordErr(fmt.Errorf("send audio: %w", err))
			_ = s.conn.Close()
			return
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.recordErr(fmt.Errorf("close stream: %w", err))
	}
}

func (s *listenSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.recordErr(fmt.Errorf("read deepgram event: %w", err))
			return
		}

		var msg listenMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		if strings.EqualFold(msg.Type, "Error") {
			reason := strings.TrimSpace(msg.Message)
			if reason == "" {
				reason = "deepgram returned an unknown error"
			}
			s.recordErr(errors.New(reason))
			return
		}

		text := msg.transcript()
		if text == "" {
			continue
		}
		event := domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: text, IsSpeechFinal: msg.SpeechFinal}
		if msg.IsFinal || msg.SpeechFinal {
			event.Kind = domain.TranscriptKindFinal
		}
		s.emit(event)
	}
}

// emit drops the event when the consumer lags behind.
func (s *listenSession) emit(event domain.TranscriptEvent) {
	select {
	case s.events <- event:
	default:
	}
}

type alternative struct {
	Transcript string `json:"transcript"`
}

type channelResult struct {
	Alternatives []alternative `json:"alternatives"`
}

type listenMessage struct {
	Type        string        `json:"type"`
	Message     string        `json:"message"`
	IsFinal     bool          `json:"is_final"`
	SpeechFinal bool          `json:"speech_final"`
	Channel     channelResult `json:"channel"`
	Results     struct {
		Channels []channelResult `json:"channels"`
	} `json:"results"`
}

func (m listenMessage) transcript() string {
	if len(m.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(m.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(m.Results.Channels) > 0 && len(m.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(m.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

func listenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(providerCfg.APIBaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid Deepgram API base URL scheme %q", u.Scheme)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	q := u.Query()
	q.Set("model", providerCfg.Model)
	q.Set("encoding", streamCfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	q.Set("channels", strconv.Itoa(streamCfg.Channels))
	q.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	q.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if providerCfg.Language != "" {
		q.Set("language", providerCfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
