package dictation

import (
	"strings"
	"sync"

	"screenflow/internal/domain"
)

// aggregator joins final segments and keeps the latest interim text so the
// input box can show words before the provider commits them.
type aggregator struct {
	mu      sync.Mutex
	finals  []string
	interim string
}

func (a *aggregator) Add(event domain.TranscriptEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	if event.Kind == domain.TranscriptKindFinal {
		a.finals = append(a.finals, text)
		a.interim = ""
		return
	}
	a.interim = text
}

// Text returns committed segments followed by any pending interim segment.
func (a *aggregator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	parts := append([]string(nil), a.finals...)
	if a.interim != "" {
		parts = append(parts, a.interim)
	}
	return strings.Join(parts, " ")
}
