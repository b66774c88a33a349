// Package stage holds the screening wizard's stage transition table.
package stage

import (
	"errors"
	"fmt"

	"screenflow/internal/domain"
)

// ErrRejected is returned for (stage, action) pairs without an edge.
var ErrRejected = errors.New("transition rejected")

// ErrResumeRequired is returned when leaving Upload without a resume.
var ErrResumeRequired = errors.New("a resume is required to continue")

// ErrConversationIncomplete is returned when finishing Chat too early.
var ErrConversationIncomplete = errors.New("screening conversation is not complete")

// Guards carries the session facts some edges depend on.
type Guards struct {
	HasResume            bool
	ConversationComplete bool
}

// Transition returns the next stage for action. Rejected pairs return the
// current stage together with a non-nil error.
func Transition(current domain.Stage, action domain.Action, guards Guards) (domain.Stage, error) {
	next, ok := edge(current, action)
	if !ok {
		return current, fmt.Errorf("%w: %s from %s", ErrRejected, action, current)
	}

	switch {
	case current == domain.StageUpload && next == domain.StageChat && !guards.HasResume:
		return current, ErrResumeRequired
	case current == domain.StageChat && next == domain.StageCompletion && !guards.ConversationComplete:
		return current, ErrConversationIncomplete
	}
	return next, nil
}

// Visible reports whether a stage is rendered as a screen.
func Visible(s domain.Stage) bool {
	switch s {
	case domain.StageInitial, domain.StageGuidance, domain.StageUpload, domain.StageChat, domain.StageCompletion:
		return true
	default:
		return false
	}
}

func edge(from domain.Stage, action domain.Action) (domain.Stage, bool) {
	switch from {
	case domain.StageInitial:
		switch action {
		case domain.ActionBegin:
			return domain.StageGuidance, true
		case domain.ActionExit:
			return domain.StageCancelled, true
		}
	case domain.StageGuidance:
		switch action {
		case domain.ActionNext:
			return domain.StageUpload, true
		case domain.ActionExit:
			return domain.StageCancelled, true
		}
	case domain.StageUpload:
		switch action {
		case domain.ActionContinue:
			return domain.StageChat, true
		case domain.ActionBack:
			return domain.StageGuidance, true
		case domain.ActionExit:
			return domain.StageCancelled, true
		}
	case domain.StageChat:
		switch action {
		case domain.ActionFinish:
			return domain.StageCompletion, true
		case domain.ActionBack:
			return domain.StageUpload, true
		case domain.ActionExit:
			return domain.StageCancelled, true
		}
	case domain.StageCompletion:
		switch action {
		case domain.ActionSubmit:
			return domain.StageSubmitted, true
		case domain.ActionCancel:
			return domain.StageCancelled, true
		}
	}
	return from, false
}
