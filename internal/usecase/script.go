package usecase

// ClosingMessage concludes the typed screening conversation.
const ClosingMessage = "Thanks! That's all the information I need for this initial screening. Please proceed to the final step."

// DefaultPrompts is the Design Engineer screening script.
var DefaultPrompts = []string{
	"Great! Let's talk about your suitability for the Design Engineer role at Snap. Can you start by telling me about your experience with 3D CAD software like NX or SolidWorks? What kind of projects have you used them for?",
	"Thanks for sharing. How about your experience with manufacturing processes like injection molding or CNC machining? Have you worked closely with manufacturers before?",
	"Interesting. Could you describe a challenging design problem you encountered and how you approached solving it?",
	"That's helpful context. Lastly, what aspects of working on hardware at a company like Snap particularly excite you?",
}

// Script is an ordered list of assistant prompts with a fallback for when
// the cursor runs past the end.
type Script struct {
	prompts  []string
	fallback string
}

// NewScript copies prompts. An empty list falls back to DefaultPrompts so
// there is always an opening message.
func NewScript(prompts []string, fallback string) Script {
	if len(prompts) == 0 {
		prompts = DefaultPrompts
	}
	if fallback == "" {
		fallback = ClosingMessage
	}
	return Script{prompts: append([]string(nil), prompts...), fallback: fallback}
}

// Opening is the first prompt.
func (s Script) Opening() string {
	return s.prompts[0]
}

// At returns the prompt at cursor, or the fallback once the script is exhausted.
func (s Script) At(cursor int) string {
	if cursor < 0 || cursor >= len(s.prompts) {
		return s.fallback
	}
	return s.prompts[cursor]
}

func (s Script) Len() int {
	return len(s.prompts)
}

// CursorFor maps a transcript length, counted after the user's latest
// message, to the next prompt.
func CursorFor(transcriptLen int) int {
	return transcriptLen / 2
}

// CompletionRule decides whether a transcript of the given length, counting
// the assistant reply about to be appended, concludes the conversation.
type CompletionRule func(transcriptLen int) bool

// FixedThreshold completes once the transcript reaches n messages.
func FixedThreshold(n int) CompletionRule {
	return func(transcriptLen int) bool {
		return transcriptLen >= n
	}
}

// AfterScript completes once every prompt has been answered.
func AfterScript(script Script) CompletionRule {
	return func(transcriptLen int) bool {
		return CursorFor(transcriptLen-1) >= script.Len()
	}
}
