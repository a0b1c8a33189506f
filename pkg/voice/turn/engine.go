package turn

import "context"

// Question is one prompt from the engine.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`

	// Announcement, when set, is spoken before the question to mark a phase
	// transition.
	Announcement string `json:"announcement,omitempty"`

	Phase           string  `json:"phase,omitempty"`
	PercentComplete float64 `json:"percent_complete,omitempty"`
}

// ResponseResult is what the engine made of one answer.
type ResponseResult struct {
	// SignalsDetected maps detected signal names to strengths.
	SignalsDetected map[string]float64 `json:"signals_detected,omitempty"`

	// FollowUp, when set, is a clarifying question to ask immediately.
	FollowUp string `json:"follow_up,omitempty"`
}

// Summary is the closing state of a finished session.
type Summary struct {
	DomainsCovered     []string `json:"domains_covered"`
	RecommendedModules []string `json:"recommended_modules"`
}

// Engine supplies interview content and consumes answers. The controller
// treats it as an opaque source of questions; engine failures skip a turn
// rather than ending the session.
type Engine interface {
	// NextQuestion returns the next prompt, or nil when none remain.
	NextQuestion(ctx context.Context) (*Question, error)

	// ProcessResponse hands an answer to the engine.
	ProcessResponse(ctx context.Context, questionID, response string) (*ResponseResult, error)

	// SkipQuestion marks a question as passed without an answer.
	SkipQuestion(ctx context.Context, questionID string) error

	// IsComplete reports whether the session has run out of content.
	IsComplete(ctx context.Context) bool

	// Save persists session progress and returns the artifact path.
	Save(ctx context.Context) (string, error)

	// Summary returns the closing summary.
	Summary(ctx context.Context) (*Summary, error)
}

// Speaker renders prompts audibly.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Provider() string
}

// Listener captures one response and returns its transcript. Empty means
// silence.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context) (string, error)

// Listen implements Listener.
func (f ListenerFunc) Listen(ctx context.Context) (string, error) {
	return f(ctx)
}
