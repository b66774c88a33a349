// Package dictation is the voice-to-text convenience for the typed chat. It is
// best effort: when capture is unsupported or fails, the control is disabled
// and typed input keeps working.
package dictation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"screenflow/internal/audio"
	"screenflow/internal/domain"
	"screenflow/internal/logger"
	"screenflow/internal/ports"
)

// ErrUnsupported is returned when no capture backend is available.
var ErrUnsupported = errors.New("speech recognition is not supported on this device")

// ErrNotListening is returned by Stop when no capture is running.
var ErrNotListening = errors.New("dictation is not listening")

// Config controls capture and streaming settings.
type Config struct {
	Audio       ports.AudioConfig
	Streaming   ports.StreamingConfig
	ChunkSize   int
	StopTimeout time.Duration
}

// Recorder owns at most one capture at a time.
type Recorder struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	cfg      Config
	notify   func(domain.DictationStatus)
	log      *zap.Logger

	mu      sync.Mutex
	current *capture
	status  domain.DictationStatus
}

type capture struct {
	cancel func()
	audio  ports.AudioSession
	stream ports.StreamingSession
	text   *aggregator

	eventsDone chan struct{}
	pumpDone   chan struct{}
}

// NewRecorder builds a recorder. supported=false permanently disables it.
// notify may be nil.
func NewRecorder(
	capture ports.AudioCapture,
	provider ports.TranscriptionProvider,
	supported bool,
	cfg Config,
	notify func(domain.DictationStatus),
	log *zap.Logger,
) *Recorder {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 4 * time.Second
	}
	if notify == nil {
		notify = func(domain.DictationStatus) {}
	}
	r := &Recorder{
		audio:    capture,
		provider: provider,
		cfg:      cfg,
		notify:   notify,
		log:      logger.OrNop(log).Named("dictation"),
	}
	r.status.Supported = supported && capture != nil && provider != nil
	if !r.status.Supported {
		r.status.Error = ErrUnsupported.Error()
	}
	return r
}

// Status returns the current control state.
func (r *Recorder) Status() domain.DictationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Start begins listening. Starting while already listening is a no-op.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if !r.status.Supported {
		r.mu.Unlock()
		return ErrUnsupported
	}
	if r.current != nil {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	captureCtx, cancel := context.WithCancel(ctx)
	stream, err := r.provider.StartStreaming(captureCtx, r.cfg.Streaming)
	if err != nil {
		cancel()
		r.setFailed("could not start listening")
		r.log.Warn("starting speech stream", zap.Error(err))
		return err
	}
	mic, err := r.audio.Start(captureCtx, r.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		r.setFailed("could not start listening")
		r.log.Warn("starting microphone", zap.Error(err))
		return err
	}

	active := &capture{
		cancel:     cancel,
		audio:      mic,
		stream:     stream,
		text:       &aggregator{},
		eventsDone: make(chan struct{}),
		pumpDone:   make(chan struct{}),
	}

	r.mu.Lock()
	if r.current != nil {
		// Lost a race with a concurrent Start; keep the first capture.
		r.mu.Unlock()
		cancel()
		_ = mic.Stop()
		_ = stream.Close()
		return nil
	}
	r.current = active
	r.status.Listening = true
	r.status.Text = ""
	r.status.Error = ""
	status := r.status
	r.mu.Unlock()

	go r.consume(active)
	go r.pump(active)

	r.notify(status)
	r.log.Debug("dictation started")
	return nil
}

// Stop ends listening and returns the captured text.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	active := r.current
	r.current = nil
	r.mu.Unlock()
	if active == nil {
		return "", ErrNotListening
	}

	if err := active.audio.Stop(); err != nil {
		r.log.Debug("stopping microphone", zap.Error(err))
	}
	_ = active.stream.CloseSend()
	streamErr := waitForStream(active.stream, r.cfg.StopTimeout)
	<-active.eventsDone
	<-active.pumpDone
	active.cancel()

	text := active.text.Text()

	r.mu.Lock()
	r.status.Listening = false
	r.status.Text = text
	if streamErr != nil && text == "" {
		r.status.Error = "speech recognition error: " + streamErr.Error()
	}
	status := r.status
	r.mu.Unlock()

	r.notify(status)
	if streamErr != nil && text == "" {
		return "", streamErr
	}
	return text, nil
}

// Close discards any running capture.
func (r *Recorder) Close() {
	r.mu.Lock()
	active := r.current
	r.current = nil
	r.status.Listening = false
	r.mu.Unlock()

	if active != nil {
		r.teardown(active)
	}
}

func (r *Recorder) consume(active *capture) {
	defer close(active.eventsDone)

	for event := range active.stream.Events() {
		active.text.Add(event)

		r.mu.Lock()
		if r.current != active {
			r.mu.Unlock()
			continue
		}
		r.status.Text = active.text.Text()
		status := r.status
		r.mu.Unlock()
		r.notify(status)
	}

	if err := active.stream.Wait(); err != nil {
		go r.fail(active, err)
	}
}

func (r *Recorder) pump(active *capture) {
	defer close(active.pumpDone)

	if err := audio.Pump(active.audio, active.stream.SendAudio, r.cfg.ChunkSize); err != nil {
		go r.fail(active, err)
	}
}

// fail tears down active if it is still the current capture.
func (r *Recorder) fail(active *capture, err error) {
	r.mu.Lock()
	if r.current != active {
		r.mu.Unlock()
		return
	}
	r.current = nil
	r.status.Listening = false
	r.status.Error = "speech recognition error: " + err.Error()
	status := r.status
	r.mu.Unlock()

	r.log.Warn("dictation failed", zap.Error(err))
	r.teardown(active)
	r.notify(status)
}

func (r *Recorder) setFailed(message string) {
	r.mu.Lock()
	r.status.Listening = false
	r.status.Error = message
	status := r.status
	r.mu.Unlock()
	r.notify(status)
}

func (r *Recorder) teardown(active *capture) {
	active.cancel()
	_ = active.audio.Stop()
	_ = active.stream.Close()
	<-active.eventsDone
	<-active.pumpDone
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
