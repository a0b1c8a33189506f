package tts

import "testing"

func TestResolveVoiceID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"rachel", "21m00Tcm4TlvDq8ikWAM"},
		{"Rachel", "21m00Tcm4TlvDq8ikWAM"},
		{"  ADAM ", "pNInz6obpgDQGcFmaJgB"},
		{"customVoiceID123", "customVoiceID123"},
	}
	for _, tt := range tests {
		if got := ResolveVoiceID(tt.in); got != tt.want {
			t.Errorf("ResolveVoiceID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPresetVoices_SortedAndComplete(t *testing.T) {
	voices := PresetVoices()
	if len(voices) != 10 {
		t.Fatalf("got %d presets, want 10", len(voices))
	}
	for i := 1; i < len(voices); i++ {
		if voices[i-1].Name >= voices[i].Name {
			t.Fatalf("presets not sorted: %q before %q", voices[i-1].Name, voices[i].Name)
		}
	}
	for _, v := range voices {
		if v.Provider != "elevenlabs" {
			t.Errorf("preset %q missing provider tag: %q", v.Name, v.Provider)
		}
	}
}
