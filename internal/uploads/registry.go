// Package uploads holds the applicant's document references and external links.
package uploads

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"screenflow/internal/domain"
)

const (
	// MaxLinks is the most external links one application can carry.
	MaxLinks = 5
	// MaxFileSize is the largest accepted document, in bytes.
	MaxFileSize int64 = 5 * 1024 * 1024
)

var acceptedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// ValidationError is a rejected user input. Registry state is unchanged when
// one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Registry holds at most one resume, one cover letter and MaxLinks links.
type Registry struct {
	validate *validator.Validate

	mu          sync.RWMutex
	resume      string
	coverLetter string
	links       []string
}

func NewRegistry() *Registry {
	return &Registry{validate: validator.New()}
}

// SetFile stores a document reference. An empty name clears the slot.
func (r *Registry) SetFile(kind domain.FileKind, name string) error {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case domain.FileResume:
		r.resume = name
	case domain.FileCoverLetter:
		r.coverLetter = name
	default:
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("unknown document kind %q", kind)}
	}
	return nil
}

// CheckFile validates a picked document before it is stored.
func CheckFile(name string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "file", Reason: "file name is required"}
	}
	if size > MaxFileSize {
		return &ValidationError{Field: "file", Reason: "file size exceeds 5MB limit"}
	}
	if !acceptedExtensions[strings.ToLower(filepath.Ext(name))] {
		return &ValidationError{Field: "file", Reason: "only PDF, DOC and DOCX files are accepted"}
	}
	return nil
}

// AddLink appends an http or https URL.
func (r *Registry) AddLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return &ValidationError{Field: "link", Reason: "link is empty"}
	}
	if err := r.validate.Var(link, "http_url"); err != nil {
		return &ValidationError{Field: "link", Reason: "please enter a valid URL starting with http:// or https://"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.links) >= MaxLinks {
		return &ValidationError{Field: "link", Reason: fmt.Sprintf("you can add a maximum of %d links", MaxLinks)}
	}
	r.links = append(r.links, link)
	return nil
}

// RemoveLink drops the first exact match. It reports whether anything was removed.
func (r *Registry) RemoveLink(link string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.links {
		if existing == link {
			r.links = append(r.links[:i:i], r.links[i+1:]...)
			return true
		}
	}
	return false
}

// HasResume reports whether the Upload stage may be completed.
func (r *Registry) HasResume() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resume != ""
}

// Snapshot copies the registry contents.
func (r *Registry) Snapshot() domain.Uploads {
	r.mu.RLock()
	defer r.mu.RUnlock()

	links := make([]string, len(r.links))
	copy(links, r.links)
	return domain.Uploads{Resume: r.resume, CoverLetter: r.coverLetter, Links: links}
}

// Reset clears every slot.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resume = ""
	r.coverLetter = ""
	r.links = nil
}
