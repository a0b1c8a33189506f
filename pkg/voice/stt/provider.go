// Package stt transcribes captured audio locally. The only implementation is
// a Whisper engine backed by whisper.cpp; the model is loaded lazily on first
// use so construction stays cheap.
package stt

import (
	"context"

	"github.com/voxterview/voxterview/pkg/voice"
)

// Provider is a speech-to-text backend.
type Provider interface {
	// Name identifies the backend.
	Name() string

	// Transcribe converts mono float32 samples at the given rate to text.
	// A zero-length buffer yields an empty transcript, not an error.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (*voice.Transcript, error)

	// TranscribeFile transcribes a 16-bit PCM WAV file.
	TranscribeFile(ctx context.Context, path string) (*voice.Transcript, error)
}
