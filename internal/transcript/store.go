// Package transcript keeps the ordered message log shared by both chat modalities.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"screenflow/internal/domain"
)

// Store is an append-only message log. Reset is the only way to shrink it.
type Store struct {
	mu       sync.RWMutex
	messages []domain.Message
	now      func() time.Time
	newID    func() string
}

func NewStore() *Store {
	return &Store{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Append records a message and returns the stored copy.
func (s *Store) Append(sender domain.Sender, text string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	message := domain.Message{
		ID:        s.newID(),
		Sender:    sender,
		Text:      strings.TrimSpace(text),
		Timestamp: s.now(),
	}
	s.messages = append(s.messages, message)
	return message
}

// Messages returns the log in insertion order.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Reset drops every message.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
