package turn

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"", CommandNone},
		{"I built a payments service", CommandNone},
		{"pause", CommandPause},
		{"Pause, please", CommandPause},
		{"can we stop the interview", CommandPause},
		{"STOP INTERVIEW", CommandPause},
		{"stop", CommandPause},
		{"please stop", CommandPause},
		{"skip", CommandSkip},
		{"next question please", CommandSkip},
		{"I'll pass on that one", CommandSkip},
		{"repeat", CommandRepeat},
		{"could you say that again", CommandRepeat},
		// Precedence: pause beats skip beats repeat.
		{"pause and skip this", CommandPause},
		{"skip it, or say that again", CommandSkip},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCommandString(t *testing.T) {
	if CommandPause.String() != "pause" || CommandNone.String() != "none" {
		t.Error("unexpected command names")
	}
}

func TestStateString(t *testing.T) {
	if StateListening.String() != "listening" || StateDone.String() != "done" {
		t.Error("unexpected state names")
	}
	if State(99).String() != "unknown" {
		t.Error("out-of-range state should be unknown")
	}
}
