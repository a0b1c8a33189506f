// Package turn drives the spoken question/answer loop: ask, listen, retry on
// silence, intercept voice commands, and close out with a summary. Content
// comes from an Engine; audio goes through the voice pipeline.
package turn

// State is the controller's position in the turn cycle.
type State int

const (
	// StateAwaitingQuestion means the controller is fetching the next question.
	StateAwaitingQuestion State = iota
	// StateSpeaking means a prompt is being rendered audibly.
	StateSpeaking
	// StateListening means the first listen attempt for a prompt is running.
	StateListening
	// StateRetryListen means the re-prompt listen after a silent attempt.
	StateRetryListen
	// StateProcessing means a response is with the engine.
	StateProcessing
	// StateDone means the session ended, by completion or by pause.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingQuestion:
		return "awaiting_question"
	case StateSpeaking:
		return "speaking"
	case StateListening:
		return "listening"
	case StateRetryListen:
		return "retry_listen"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
