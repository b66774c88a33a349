// Package audio captures raw PCM from the local microphone through ffmpeg.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"screenflow/internal/ports"
)

const (
	startupProbe = 250 * time.Millisecond
	stopGrace    = 1200 * time.Millisecond
)

// Microphone implements ports.AudioCapture by running ffmpeg and reading s16le PCM from stdout.
type Microphone struct {
	command string
}

func NewMicrophone(command string) *Microphone {
	if strings.TrimSpace(command) == "" {
		command = "ffmpeg"
	}
	return &Microphone{command: command}
}

// Available reports whether the capture command can be found.
func (m *Microphone) Available() bool {
	_, err := exec.LookPath(m.command)
	return err == nil
}

func (m *Microphone) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, m.command, captureArgs(cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", m.command, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	// A recorder that cannot open the device exits almost immediately.
	select {
	case err := <-exited:
		if err != nil {
			return nil, fmt.Errorf("capture exited before recording started: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.New("capture exited before recording started")
	case <-time.After(startupProbe):
	}

	return &micSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		exited:  exited,
	}, nil
}

func captureArgs(cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

type micSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	exited  <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *micSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *micSession) Close() error {
	return s.Stop()
}

// Stop interrupts the recorder, escalating to kill after stopGrace.
func (s *micSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		var waitErr error
		select {
		case waitErr = <-s.exited:
		case <-time.After(stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			waitErr = <-s.exited
		}
		s.stopErr = ignoreExitStatus(waitErr)

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

// ignoreExitStatus treats a non-zero exit after interrupt as a normal stop.
func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
