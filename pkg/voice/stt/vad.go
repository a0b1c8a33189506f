package stt

import (
	"math"
	"time"
)

// vadWindow is the energy-analysis window in samples.
const vadWindow = 512

// FilterSilence removes non-speech audio before inference: leading and
// trailing silence is dropped entirely, and interior silent stretches longer
// than minSilence are shortened to minSilence so natural pauses survive but
// dead air does not. A threshold <= 0 disables filtering.
func FilterSilence(samples []float32, sampleRate int, threshold float64, minSilence time.Duration) []float32 {
	if threshold <= 0 || len(samples) == 0 {
		return samples
	}

	keepWindows := int(minSilence.Seconds() * float64(sampleRate) / vadWindow)
	if keepWindows < 1 {
		keepWindows = 1
	}

	// Classify each window. A short final window inherits its own energy.
	numWindows := (len(samples) + vadWindow - 1) / vadWindow
	silent := make([]bool, numWindows)
	for i := 0; i < numWindows; i++ {
		lo := i * vadWindow
		hi := lo + vadWindow
		if hi > len(samples) {
			hi = len(samples)
		}
		silent[i] = windowRMS(samples[lo:hi]) <= threshold
	}

	first, last := -1, -1
	for i, s := range silent {
		if !s {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return nil
	}

	out := make([]float32, 0, len(samples))
	run := 0
	for i := first; i <= last; i++ {
		if silent[i] {
			run++
			if run > keepWindows {
				continue
			}
		} else {
			run = 0
		}
		lo := i * vadWindow
		hi := lo + vadWindow
		if hi > len(samples) {
			hi = len(samples)
		}
		out = append(out, samples[lo:hi]...)
	}
	return out
}

func windowRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
