package stt

import (
	"testing"
	"time"
)

func windows(energies ...float32) []float32 {
	out := make([]float32, 0, len(energies)*vadWindow)
	for _, e := range energies {
		for i := 0; i < vadWindow; i++ {
			out = append(out, e)
		}
	}
	return out
}

func TestFilterSilence(t *testing.T) {
	const rate = 16000
	// One window at 16 kHz is 32ms; minSilence of 64ms keeps 2 windows.
	minSilence := 64 * time.Millisecond

	tests := []struct {
		name        string
		in          []float32
		wantWindows int
	}{
		{"all silence", windows(0, 0, 0), 0},
		{"edges trimmed", windows(0, 0.5, 0.5, 0), 2},
		{"short pause kept", windows(0.5, 0, 0.5), 3},
		{"long pause shortened", windows(0.5, 0, 0, 0, 0, 0.5), 4},
		{"all speech", windows(0.5, 0.5), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FilterSilence(tt.in, rate, 0.01, minSilence)
			if got := len(out) / vadWindow; got != tt.wantWindows {
				t.Errorf("kept %d windows, want %d", got, tt.wantWindows)
			}
		})
	}
}

func TestFilterSilence_DisabledThreshold(t *testing.T) {
	in := windows(0, 0)
	out := FilterSilence(in, 16000, 0, time.Second)
	if len(out) != len(in) {
		t.Error("threshold <= 0 must disable filtering")
	}
}
