package turn

import "strings"

// Command is a voice command intercepted from a response before the response
// reaches the engine.
type Command int

const (
	// CommandNone means the response is an ordinary answer.
	CommandNone Command = iota
	// CommandPause saves progress and halts the session.
	CommandPause
	// CommandSkip moves past the current question without an answer.
	CommandSkip
	// CommandRepeat re-speaks the last prompt.
	CommandRepeat
)

func (c Command) String() string {
	switch c {
	case CommandPause:
		return "pause"
	case CommandSkip:
		return "skip"
	case CommandRepeat:
		return "repeat"
	default:
		return "none"
	}
}

var (
	pausePhrases  = []string{"pause", "stop"}
	skipPhrases   = []string{"skip", "next question", "pass"}
	repeatPhrases = []string{"repeat", "say that again", "say again"}
)

// ParseCommand checks a transcript for a voice command by case-insensitive
// substring match. Precedence is pause over skip over repeat, so "pause and
// skip" pauses.
func ParseCommand(text string) Command {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return CommandNone
	}
	for _, p := range pausePhrases {
		if strings.Contains(t, p) {
			return CommandPause
		}
	}
	for _, p := range skipPhrases {
		if strings.Contains(t, p) {
			return CommandSkip
		}
	}
	for _, p := range repeatPhrases {
		if strings.Contains(t, p) {
			return CommandRepeat
		}
	}
	return CommandNone
}
