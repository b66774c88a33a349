// Package voice manages the live call with the remote voice assistant. The
// call lifecycle is driven by the service's notifications; only Connecting
// and Ending are entered locally.
package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"screenflow/internal/domain"
	"screenflow/internal/logger"
	"screenflow/internal/ports"
)

var (
	// ErrNotConfigured is returned when no voice service credential was supplied.
	ErrNotConfigured = errors.New("voice service key is not configured")

	// ErrNoAssistant is returned when neither an assistant reference nor an inline config is set.
	ErrNoAssistant = errors.New("voice assistant is not configured")

	// ErrCallInProgress is returned by StartCall while connecting, active or ending.
	ErrCallInProgress = errors.New("a call is already in progress")
)

const (
	defaultTick          = time.Second
	defaultTargetSeconds = 300
)

// Config controls the assistant identity and the elapsed-time indicator.
type Config struct {
	Assistant     domain.AssistantSpec
	TargetSeconds int
	TickInterval  time.Duration
}

// Hooks lets the orchestrator observe the manager. Any field may be nil.
type Hooks struct {
	StatusChanged func(domain.CallStatus)
	Message       func(sender domain.Sender, text string)
	CallEnded     func()
}

// Manager exclusively owns the voice client for its lifetime.
type Manager struct {
	client ports.VoiceClient
	cfg    Config
	hooks  Hooks
	log    *zap.Logger

	mu        sync.Mutex
	status    domain.CallStatus
	timerStop chan struct{}
	gen       uint64

	// callID tags the call being tracked; zero when there is none. Events
	// from any other call are dropped.
	callID  uint64
	callSeq uint64

	listenDone chan struct{}
	closeOnce  sync.Once
}

// NewManager subscribes to client events once. A nil client means the
// service credential is missing; StartCall then reports a configuration error.
func NewManager(client ports.VoiceClient, cfg Config, hooks Hooks, log *zap.Logger) *Manager {
	if cfg.TargetSeconds <= 0 {
		cfg.TargetSeconds = defaultTargetSeconds
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTick
	}
	m := &Manager{
		client:     client,
		cfg:        cfg,
		hooks:      hooks,
		log:        logger.OrNop(log).Named("voice"),
		listenDone: make(chan struct{}),
	}
	m.status = m.idleStatus()

	if client != nil {
		go m.listen(client.Events())
	} else {
		close(m.listenDone)
	}
	return m
}

// Status returns a snapshot of the call state.
func (m *Manager) Status() domain.CallStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// StartCall moves Idle or Error to Connecting and asks the service to start.
// Active is only entered when the service confirms.
func (m *Manager) StartCall(ctx context.Context) error {
	m.mu.Lock()
	if m.status.State.Busy() {
		m.mu.Unlock()
		return ErrCallInProgress
	}
	if m.client == nil {
		status := m.failLocked(domain.ErrorKindConfig, ErrNotConfigured.Error())
		m.mu.Unlock()
		m.publish(status)
		return ErrNotConfigured
	}
	if !m.cfg.Assistant.Valid() {
		status := m.failLocked(domain.ErrorKindConfig, ErrNoAssistant.Error())
		m.mu.Unlock()
		m.publish(status)
		return ErrNoAssistant
	}

	m.status = m.idleStatus()
	m.status.State = domain.CallStateConnecting
	m.callSeq++
	m.callID = m.callSeq
	callID := m.callID
	gen := m.gen
	status := m.status
	m.mu.Unlock()

	m.publish(status)
	m.log.Info("starting call")

	if err := m.client.Start(ctx, callID, m.cfg.Assistant); err != nil {
		m.log.Warn("starting call failed", zap.Error(err))
		m.mu.Lock()
		if m.gen != gen || m.status.State != domain.CallStateConnecting {
			m.mu.Unlock()
			return err
		}
		status := m.failLocked(domain.ErrorKindRuntime, err.Error())
		m.mu.Unlock()
		m.publish(status)
		return err
	}

	m.mu.Lock()
	stale := m.gen != gen
	m.mu.Unlock()
	if stale {
		// Reset ran while dialing; hang up the call nobody owns any more.
		if err := m.client.Stop(); err != nil {
			m.log.Debug("stopping orphaned call", zap.Error(err))
		}
	}
	return nil
}

// StopCall moves Active to Ending. It is a no-op in every other state.
func (m *Manager) StopCall() error {
	m.mu.Lock()
	if m.status.State != domain.CallStateActive {
		m.mu.Unlock()
		return nil
	}
	m.stopTimerLocked()
	m.status.State = domain.CallStateEnding
	m.status.AssistantSpeaking = false
	status := m.status
	m.mu.Unlock()

	m.publish(status)
	m.log.Info("stopping call")

	if err := m.client.Stop(); err != nil {
		m.log.Warn("stopping call failed", zap.Error(err))
		m.mu.Lock()
		if m.status.State != domain.CallStateEnding {
			m.mu.Unlock()
			return err
		}
		status := m.failLocked(domain.ErrorKindRuntime, err.Error())
		m.mu.Unlock()
		m.publish(status)
		return err
	}
	return nil
}

// ToggleMute flips the microphone mute while Active. Elsewhere it is a no-op.
func (m *Manager) ToggleMute() error {
	m.mu.Lock()
	if m.status.State != domain.CallStateActive {
		m.mu.Unlock()
		return nil
	}
	target := !m.status.Muted
	m.mu.Unlock()

	if err := m.client.SetMuted(target); err != nil {
		m.log.Warn("toggling mute failed", zap.Error(err))
		return err
	}

	m.mu.Lock()
	if m.status.State != domain.CallStateActive {
		m.mu.Unlock()
		return nil
	}
	m.status.Muted = target
	status := m.status
	m.mu.Unlock()

	m.publish(status)
	return nil
}

// Reset tears down any call and returns to Idle. Errors from hanging up are
// swallowed; the manager state is cleared regardless.
func (m *Manager) Reset() {
	m.mu.Lock()
	inCall := m.status.State.Busy()
	m.gen++
	m.callID = 0
	m.mu.Unlock()

	if inCall && m.client != nil {
		if err := m.client.Stop(); err != nil {
			m.log.Debug("stopping call during reset", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.stopTimerLocked()
	m.status = m.idleStatus()
	status := m.status
	m.mu.Unlock()

	m.publish(status)
}

// Close resets the manager and releases the client.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.Reset()
		if m.client != nil {
			_ = m.client.Close()
		}
		<-m.listenDone
	})
}

func (m *Manager) listen(events <-chan domain.VoiceEvent) {
	defer close(m.listenDone)
	for event := range events {
		m.handle(event)
	}
}

func (m *Manager) handle(event domain.VoiceEvent) {
	m.mu.Lock()
	if event.CallID == 0 || event.CallID != m.callID {
		m.mu.Unlock()
		m.log.Debug("dropping event from a previous call",
			zap.String("type", string(event.Type)),
			zap.Uint64("call", event.CallID),
		)
		return
	}
	before := m.status.State
	changed := true
	ended := false

	switch event.Type {
	case domain.VoiceEventCallStart:
		if before != domain.CallStateConnecting {
			changed = false
			break
		}
		m.status.State = domain.CallStateActive
		m.status.ElapsedSeconds = 0
		m.startTimerLocked()

	case domain.VoiceEventCallEnd:
		if !before.Busy() {
			changed = false
			break
		}
		m.stopTimerLocked()
		m.status = m.idleStatus()
		m.callID = 0
		ended = true

	case domain.VoiceEventSpeechStart, domain.VoiceEventSpeechEnd:
		speaking := event.Type == domain.VoiceEventSpeechStart
		if before != domain.CallStateActive || m.status.AssistantSpeaking == speaking {
			changed = false
			break
		}
		m.status.AssistantSpeaking = speaking

	case domain.VoiceEventMessage:
		changed = false
		if event.Final && (before == domain.CallStateActive || before == domain.CallStateEnding) && m.hooks.Message != nil {
			m.mu.Unlock()
			m.hooks.Message(event.Role, event.Text)
			return
		}

	case domain.VoiceEventError:
		message := event.Err
		if message == "" {
			message = "voice call failed"
		}
		m.failLocked(domain.ErrorKindRuntime, message)
		m.callID = 0

	default:
		changed = false
	}

	status := m.status
	m.mu.Unlock()

	if !changed {
		return
	}
	if status.State != before {
		m.log.Info("call state changed",
			zap.String("from", string(before)),
			zap.String("to", string(status.State)),
			zap.String("error", status.Error),
		)
	}
	m.publish(status)
	if ended && m.hooks.CallEnded != nil {
		m.hooks.CallEnded()
	}
}

// failLocked enters Error and clears every call sub-state.
func (m *Manager) failLocked(kind domain.ErrorKind, message string) domain.CallStatus {
	m.stopTimerLocked()
	m.status = m.idleStatus()
	m.status.State = domain.CallStateError
	m.status.ErrorKind = kind
	m.status.Error = message
	return m.status
}

func (m *Manager) idleStatus() domain.CallStatus {
	return domain.CallStatus{State: domain.CallStateIdle, TargetSeconds: m.cfg.TargetSeconds}
}

func (m *Manager) startTimerLocked() {
	m.stopTimerLocked()
	stop := make(chan struct{})
	m.timerStop = stop
	go m.tick(stop)
}

func (m *Manager) stopTimerLocked() {
	if m.timerStop != nil {
		close(m.timerStop)
		m.timerStop = nil
	}
	m.status.ElapsedSeconds = 0
}

// tick advances the elapsed counter until the target; the target is a
// progress indicator, not a cutoff.
func (m *Manager) tick(stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		if m.timerStop != stop {
			m.mu.Unlock()
			return
		}
		if m.status.ElapsedSeconds >= m.cfg.TargetSeconds {
			m.mu.Unlock()
			continue
		}
		m.status.ElapsedSeconds++
		status := m.status
		m.mu.Unlock()

		m.publish(status)
	}
}

func (m *Manager) publish(status domain.CallStatus) {
	if m.hooks.StatusChanged != nil {
		m.hooks.StatusChanged(status)
	}
}
