// Package voice implements the voice interaction pipeline: silence-gated
// microphone capture, local transcription, dual-backend speech synthesis,
// and the composition consumed by the turn controller.
package voice

import "time"

// SampleRate is the pipeline-wide audio sample rate in Hz. Whisper models
// expect 16 kHz mono input, so capture and transcription share this rate.
const SampleRate = 16000

// CaptureConfig configures silence-gated microphone recording.
type CaptureConfig struct {
	// SilenceThreshold is the RMS energy (normalized amplitude units, not dB)
	// below which a chunk counts as silence. Default: 0.01.
	SilenceThreshold float64 `json:"silence_threshold"`

	// SilenceDuration is how much trailing silence ends an utterance once
	// speech has started. Default: 1.5s.
	SilenceDuration time.Duration `json:"silence_duration"`

	// MaxDuration bounds a single recording regardless of silence.
	// Default: 60s.
	MaxDuration time.Duration `json:"max_duration"`

	// ChunkSize is the number of samples per capture chunk. It sets the
	// granularity of the silence-duration check. Default: 1024.
	ChunkSize int `json:"chunk_size"`
}

// DefaultCaptureConfig returns a CaptureConfig with sensible defaults.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SilenceThreshold: 0.01,
		SilenceDuration:  1500 * time.Millisecond,
		MaxDuration:      60 * time.Second,
		ChunkSize:        1024,
	}
}

// TranscribeConfig configures the local speech-recognition engine.
type TranscribeConfig struct {
	// ModelPath is the path to the ggml Whisper model file.
	ModelPath string `json:"model_path"`

	// Language is the ISO language code for transcription. Default: "en".
	Language string `json:"language"`

	// Threads is the number of inference threads. 0 selects automatically.
	Threads int `json:"threads,omitempty"`

	// VADThreshold is the RMS energy below which audio inside a segment is
	// treated as non-speech and filtered before inference. Default: 0.0075.
	VADThreshold float64 `json:"vad_threshold"`

	// VADMinSilence is the minimum run of sub-threshold audio that gets
	// removed by the filter. Default: 500ms.
	VADMinSilence time.Duration `json:"vad_min_silence"`
}

// DefaultTranscribeConfig returns a TranscribeConfig with sensible defaults.
func DefaultTranscribeConfig() TranscribeConfig {
	return TranscribeConfig{
		Language:      "en",
		VADThreshold:  0.0075,
		VADMinSilence: 500 * time.Millisecond,
	}
}

// SpeakConfig configures speech synthesis and playback.
type SpeakConfig struct {
	// APIKey is the ElevenLabs API key. When empty the offline OS-native
	// engine becomes the primary provider.
	APIKey string `json:"-"`

	// Voice is a preset name (e.g. "rachel") or a raw provider voice ID for
	// the cloud backend. Default: "rachel".
	Voice string `json:"voice"`

	// ModelID is the cloud synthesis model. Default: "eleven_multilingual_v2".
	ModelID string `json:"model_id"`

	// Stability is voice stability 0-1; lower is more expressive.
	// Default: 0.5.
	Stability float64 `json:"stability"`

	// SimilarityBoost is voice clarity 0-1; higher is closer to the original.
	// Default: 0.75.
	SimilarityBoost float64 `json:"similarity_boost"`

	// Style is style exaggeration 0-1. Default: 0.
	Style float64 `json:"style"`

	// SpeakerBoost enables the provider's speaker boost. Default: true.
	SpeakerBoost bool `json:"speaker_boost"`

	// SystemVoice optionally names an OS voice for the offline engine,
	// matched by case-insensitive substring over installed voices.
	SystemVoice string `json:"system_voice,omitempty"`

	// Rate is speech rate in words per minute for the offline engine.
	// Default: 175.
	Rate int `json:"rate"`

	// RequestTimeout bounds a single cloud synthesis call so a hung network
	// request cannot wedge the turn. Default: 30s.
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultSpeakConfig returns a SpeakConfig with sensible defaults.
func DefaultSpeakConfig() SpeakConfig {
	return SpeakConfig{
		Voice:           "rachel",
		ModelID:         "eleven_multilingual_v2",
		Stability:       0.5,
		SimilarityBoost: 0.75,
		SpeakerBoost:    true,
		Rate:            175,
		RequestTimeout:  30 * time.Second,
	}
}

// Config aggregates the pipeline configuration.
type Config struct {
	Capture    CaptureConfig    `json:"capture"`
	Transcribe TranscribeConfig `json:"transcribe"`
	Speak      SpeakConfig      `json:"speak"`
}

// DefaultConfig returns a Config with sensible defaults for all stages.
func DefaultConfig() Config {
	return Config{
		Capture:    DefaultCaptureConfig(),
		Transcribe: DefaultTranscribeConfig(),
		Speak:      DefaultSpeakConfig(),
	}
}
