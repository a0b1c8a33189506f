package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/voxterview/voxterview/pkg/voice"
)

// SystemEngine speaks through the operating system's native speech stack. It
// needs no network and no API key, which makes it the fallback of last resort
// before giving up on audio entirely.
type SystemEngine struct {
	cfg  voice.SpeakConfig
	goos string

	// exec hooks, replaced in tests
	run    func(ctx context.Context, name string, args ...string) error
	output func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewSystemEngine creates an engine for the current operating system.
func NewSystemEngine(cfg voice.SpeakConfig) *SystemEngine {
	return &SystemEngine{
		cfg:  cfg,
		goos: runtime.GOOS,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Name returns the provider identifier.
func (s *SystemEngine) Name() string {
	return "system"
}

// Speak renders text through the OS speech command, blocking until playback
// finishes. On linux espeak is tried first, then speech-dispatcher.
func (s *SystemEngine) Speak(ctx context.Context, text string) error {
	switch s.goos {
	case "darwin":
		args := []string{"-r", fmt.Sprint(s.cfg.Rate)}
		if v := s.resolveVoice(ctx); v != "" {
			args = append(args, "-v", v)
		}
		args = append(args, text)
		if err := s.run(ctx, "say", args...); err != nil {
			return voice.NewError(voice.KindSynthesisProvider, "say failed", err)
		}
		return nil
	case "windows":
		script := fmt.Sprintf(
			"Add-Type -AssemblyName System.Speech; "+
				"$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; "+
				"$s.Rate = %d; $s.Speak(%s)",
			wordsPerMinuteToSAPIRate(s.cfg.Rate), psQuote(text))
		if err := s.run(ctx, "powershell", "-NoProfile", "-Command", script); err != nil {
			return voice.NewError(voice.KindSynthesisProvider, "powershell speech failed", err)
		}
		return nil
	default:
		if err := s.run(ctx, "espeak", "-s", fmt.Sprint(s.cfg.Rate), text); err == nil {
			return nil
		}
		if err := s.run(ctx, "spd-say", "--wait", text); err != nil {
			return voice.NewError(voice.KindSynthesisProvider, "no system speech command worked", err)
		}
		return nil
	}
}

// Voices lists the installed OS voices, where the platform supports listing.
func (s *SystemEngine) Voices(ctx context.Context) ([]string, error) {
	switch s.goos {
	case "darwin":
		out, err := s.output(ctx, "say", "-v", "?")
		if err != nil {
			return nil, err
		}
		return parseVoiceList(out), nil
	case "linux":
		out, err := s.output(ctx, "espeak", "--voices")
		if err != nil {
			return nil, err
		}
		return parseEspeakVoices(out), nil
	default:
		return nil, nil
	}
}

// resolveVoice matches the configured voice name against installed voices by
// case-insensitive substring, first match wins. Empty means system default.
func (s *SystemEngine) resolveVoice(ctx context.Context) string {
	want := strings.TrimSpace(s.cfg.SystemVoice)
	if want == "" {
		return ""
	}
	voices, err := s.Voices(ctx)
	if err != nil || len(voices) == 0 {
		return want
	}
	return FindVoice(voices, want)
}

// FindVoice returns the first voice whose name contains want,
// case-insensitively, or empty when nothing matches.
func FindVoice(voices []string, want string) string {
	lw := strings.ToLower(want)
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v), lw) {
			return v
		}
	}
	return ""
}

// parseVoiceList extracts voice names from `say -v ?` output, where each line
// is "Name    lang_CODE    # sample text".
func parseVoiceList(out []byte) []string {
	var voices []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		voices = append(voices, fields[0])
	}
	return voices
}

// parseEspeakVoices extracts voice names from `espeak --voices` output. The
// VoiceName column is the 4th field; the first line is a header.
func parseEspeakVoices(out []byte) []string {
	var voices []string
	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, fields[3])
	}
	return voices
}

// wordsPerMinuteToSAPIRate maps words-per-minute onto the SAPI -10..10 scale,
// with 175 wpm as the neutral midpoint.
func wordsPerMinuteToSAPIRate(wpm int) int {
	if wpm <= 0 {
		return 0
	}
	rate := (wpm - 175) / 25
	if rate < -10 {
		rate = -10
	}
	if rate > 10 {
		rate = 10
	}
	return rate
}

// psQuote single-quotes a string for PowerShell.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
