package tts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/voxterview/voxterview/pkg/voice"
)

// renderer is one way of getting text out of the speakers.
type renderer interface {
	name() string
	attempt(ctx context.Context, text string) error
}

// Speaker turns text into audible speech through an ordered fallback chain.
// With an API key the chain is cloud, then OS-native, then a bare speech
// command; without one the cloud stage is skipped. A failed stage logs a
// warning and the next stage speaks the same utterance.
type Speaker struct {
	chain   []renderer
	primary string
	cloud   *ElevenLabsProvider
	system  *SystemEngine
	log     *zap.Logger
}

// NewSpeaker builds the fallback chain from the configuration.
func NewSpeaker(cfg voice.SpeakConfig, log *zap.Logger) *Speaker {
	if log == nil {
		log = zap.NewNop()
	}
	system := NewSystemEngine(cfg)
	player := NewPlayer()

	var cloud *ElevenLabsProvider
	var chain []renderer
	if cfg.APIKey != "" {
		cloud = NewElevenLabs(cfg)
		chain = append(chain, &cloudRenderer{provider: cloud, player: player, log: log})
	}
	chain = append(chain,
		&systemRenderer{engine: system},
		&commandRenderer{engine: system},
	)

	s := newSpeakerWithChain(chain, log)
	s.cloud = cloud
	s.system = system
	return s
}

// newSpeakerWithChain wires an explicit chain. Used in tests.
func newSpeakerWithChain(chain []renderer, log *zap.Logger) *Speaker {
	if log == nil {
		log = zap.NewNop()
	}
	primary := "none"
	if len(chain) > 0 {
		primary = chain[0].name()
	}
	return &Speaker{chain: chain, primary: primary, log: log}
}

// Provider returns the name of the first stage in the chain.
func (s *Speaker) Provider() string {
	return s.primary
}

// Speak renders text audibly, blocking until playback completes. Empty or
// whitespace-only text is a no-op. When every stage fails the utterance is
// logged and dropped rather than ending the session; only context
// cancellation aborts.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, r := range s.chain {
		err := r.attempt(ctx, text)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn("speech stage failed, falling back",
			zap.String("stage", r.name()),
			zap.Error(err))
	}
	s.log.Error("all speech stages failed, utterance dropped",
		zap.Int("stages", len(s.chain)),
		zap.Int("text_len", len(text)))
	return nil
}

// GenerateAudio synthesizes text to MP3 bytes without playing them. Returns
// nil bytes when no cloud provider is configured.
func (s *Speaker) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	if s.cloud == nil {
		return nil, nil
	}
	syn, err := s.cloud.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	return syn.Audio, nil
}

// AvailableVoices lists the selectable voices: the cloud preset catalog
// first, then whatever the OS reports, each tagged with its provider.
func (s *Speaker) AvailableVoices(ctx context.Context) []VoiceProfile {
	var out []VoiceProfile
	if s.cloud != nil {
		out = append(out, PresetVoices()...)
	}
	if s.system != nil {
		if voices, err := s.system.Voices(ctx); err == nil {
			for _, v := range voices {
				out = append(out, VoiceProfile{
					ID:       v,
					Name:     v,
					Gender:   "unknown",
					Provider: "system",
				})
			}
		}
	}
	return out
}

// cloudRenderer streams PCM over the websocket and plays it; if the stream
// fails before any audio arrives it retries once over plain HTTP as MP3.
type cloudRenderer struct {
	provider *ElevenLabsProvider
	player   *Player
	log      *zap.Logger
}

func (c *cloudRenderer) name() string { return c.provider.Name() }

func (c *cloudRenderer) attempt(ctx context.Context, text string) error {
	pcm, err := c.collectStream(ctx, text)
	if err == nil && len(pcm) > 0 {
		return c.player.PlayPCM(ctx, pcm, wsSampleRate)
	}
	if err != nil {
		c.log.Debug("websocket synthesis failed, retrying over http", zap.Error(err))
	}

	syn, err := c.provider.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return c.player.PlayMP3(ctx, syn.Audio)
}

func (c *cloudRenderer) collectStream(ctx context.Context, text string) ([]byte, error) {
	stream, err := c.provider.SynthesizeStream(ctx, text)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var out []byte
	for chunk := range stream.Chunks() {
		out = append(out, chunk...)
	}
	if err := stream.Err(); err != nil && err != io.EOF && err != context.Canceled {
		return nil, err
	}
	return out, nil
}

// systemRenderer speaks through the OS speech stack with the configured
// voice and rate.
type systemRenderer struct {
	engine *SystemEngine
}

func (s *systemRenderer) name() string { return s.engine.Name() }

func (s *systemRenderer) attempt(ctx context.Context, text string) error {
	return s.engine.Speak(ctx, text)
}

// commandRenderer is the last resort: the bare platform speech command with
// no voice or rate options, so a bad configuration cannot break it.
type commandRenderer struct {
	engine *SystemEngine
}

func (c *commandRenderer) name() string { return "command" }

func (c *commandRenderer) attempt(ctx context.Context, text string) error {
	switch c.engine.goos {
	case "darwin":
		return c.engine.run(ctx, "say", text)
	case "windows":
		script := fmt.Sprintf(
			"Add-Type -AssemblyName System.Speech; "+
				"(New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak(%s)",
			psQuote(text))
		return c.engine.run(ctx, "powershell", "-NoProfile", "-Command", script)
	default:
		return c.engine.run(ctx, "espeak", text)
	}
}
