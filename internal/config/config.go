// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/voxterview/voxterview/pkg/voice"
)

// Config is the full application configuration.
type Config struct {
	Voice voice.Config

	// QuestionsPath is the JSON question script driving the session.
	QuestionsPath string

	// SessionDir is where session transcripts and progress are written.
	SessionDir string

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string
}

// FromEnv builds a Config from environment variables, starting from the
// pipeline defaults. Unset or unparsable values keep their defaults.
func FromEnv() Config {
	cfg := Config{
		Voice:         voice.DefaultConfig(),
		QuestionsPath: envStr("VOX_QUESTIONS", "questions.json"),
		SessionDir:    envStr("VOX_SESSION_DIR", "sessions"),
		LogLevel:      envStr("VOX_LOG_LEVEL", "info"),
	}

	cfg.Voice.Speak.APIKey = envStr("ELEVENLABS_API_KEY", "")
	cfg.Voice.Speak.Voice = envStr("VOX_VOICE", cfg.Voice.Speak.Voice)
	cfg.Voice.Speak.ModelID = envStr("VOX_TTS_MODEL", cfg.Voice.Speak.ModelID)
	cfg.Voice.Speak.SystemVoice = envStr("VOX_SYSTEM_VOICE", cfg.Voice.Speak.SystemVoice)
	cfg.Voice.Speak.Rate = envInt("VOX_SPEECH_RATE", cfg.Voice.Speak.Rate)

	cfg.Voice.Transcribe.ModelPath = envStr("VOX_WHISPER_MODEL", cfg.Voice.Transcribe.ModelPath)
	cfg.Voice.Transcribe.Language = envStr("VOX_LANGUAGE", cfg.Voice.Transcribe.Language)
	cfg.Voice.Transcribe.Threads = envInt("VOX_THREADS", cfg.Voice.Transcribe.Threads)

	cfg.Voice.Capture.SilenceThreshold = envFloat("VOX_SILENCE_THRESHOLD", cfg.Voice.Capture.SilenceThreshold)
	cfg.Voice.Capture.SilenceDuration = envDuration("VOX_SILENCE_DURATION", cfg.Voice.Capture.SilenceDuration)
	cfg.Voice.Capture.MaxDuration = envDuration("VOX_MAX_RECORD_DURATION", cfg.Voice.Capture.MaxDuration)

	return cfg
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
