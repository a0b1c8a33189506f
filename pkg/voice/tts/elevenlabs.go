package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxterview/voxterview/pkg/voice"
)

const (
	elevenLabsDefaultBase   = "https://api.elevenlabs.io/v1"
	elevenLabsDefaultWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"

	// wsSampleRate is the PCM rate requested on the streaming endpoint.
	wsSampleRate = 24000
)

// ElevenLabsProvider synthesizes speech through the ElevenLabs API. The plain
// Synthesize path returns MP3 from the HTTP streaming endpoint; the websocket
// path streams raw PCM for lower time-to-first-audio.
type ElevenLabsProvider struct {
	apiKey     string
	cfg        voice.SpeakConfig
	httpClient *http.Client
	baseURL    string
	wsBaseURL  string
}

// NewElevenLabs creates a provider from the given configuration.
func NewElevenLabs(cfg voice.SpeakConfig) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    elevenLabsDefaultBase,
		wsBaseURL:  elevenLabsDefaultWSBase,
	}
}

// WithBaseURL overrides the HTTP API base. Used in tests.
func (e *ElevenLabsProvider) WithBaseURL(base string) *ElevenLabsProvider {
	if base = strings.TrimSpace(base); base != "" {
		e.baseURL = base
	}
	return e
}

// WithWSBaseURL overrides the websocket API base. Used in tests.
func (e *ElevenLabsProvider) WithWSBaseURL(base string) *ElevenLabsProvider {
	if base = strings.TrimSpace(base); base != "" {
		e.wsBaseURL = base
	}
	return e
}

// Name returns the provider identifier.
func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

// Synthesize converts text to MP3 audio via the HTTP streaming endpoint.
func (e *ElevenLabsProvider) Synthesize(ctx context.Context, text string) (*Synthesis, error) {
	if e.apiKey == "" {
		return nil, voice.NewError(voice.KindSynthesisProvider, "elevenlabs api key is required", nil)
	}

	voiceID := ResolveVoiceID(e.cfg.Voice)
	endpoint := fmt.Sprintf("%s/text-to-speech/%s/stream", e.baseURL, url.PathEscape(voiceID))

	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": e.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":         e.cfg.Stability,
			"similarity_boost":  e.cfg.SimilarityBoost,
			"style":             e.cfg.Style,
			"use_speaker_boost": e.cfg.SpeakerBoost,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, voice.NewError(voice.KindSynthesisProvider, "elevenlabs request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, voice.NewError(voice.KindSynthesisProvider,
			fmt.Sprintf("elevenlabs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, voice.NewError(voice.KindSynthesisProvider, "read elevenlabs response", err)
	}
	return &Synthesis{Audio: audio, Format: "mp3"}, nil
}

// SynthesizeStream converts text to streaming PCM audio over a websocket.
func (e *ElevenLabsProvider) SynthesizeStream(ctx context.Context, text string) (*SynthesisStream, error) {
	sc, err := e.newStreamingContext(ctx)
	if err != nil {
		return nil, err
	}
	stream := NewSynthesisStream()
	if err := sc.SendText(text, false); err != nil {
		_ = sc.Close()
		return nil, err
	}
	if err := sc.Flush(); err != nil {
		_ = sc.Close()
		return nil, err
	}

	go func() {
		defer stream.FinishSending()
		defer sc.Close()
		for chunk := range sc.Audio() {
			if !stream.Send(chunk) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			stream.SetError(err)
		}
	}()

	return stream, nil
}

func (e *ElevenLabsProvider) newStreamingContext(ctx context.Context) (*StreamingContext, error) {
	if e.apiKey == "" {
		return nil, voice.NewError(voice.KindSynthesisProvider, "elevenlabs api key is required", nil)
	}
	voiceID := ResolveVoiceID(e.cfg.Voice)
	wsURL, err := buildElevenLabsWSURL(e.wsBaseURL, voiceID, e.cfg.ModelID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, voice.NewError(voice.KindSynthesisProvider, "dial elevenlabs websocket", err)
	}

	sc := NewStreamingContext()
	ctxDone := make(chan struct{})
	var closeOnce sync.Once
	closeConn := func() error {
		var closeErr error
		closeOnce.Do(func() {
			close(ctxDone)
			closeErr = conn.Close()
		})
		return closeErr
	}

	if err := conn.WriteJSON(map[string]any{
		"text": " ",
		"voice_settings": map[string]any{
			"stability":         e.cfg.Stability,
			"similarity_boost":  e.cfg.SimilarityBoost,
			"style":             e.cfg.Style,
			"use_speaker_boost": e.cfg.SpeakerBoost,
		},
	}); err != nil {
		_ = closeConn()
		return nil, voice.NewError(voice.KindSynthesisProvider, "open elevenlabs stream", err)
	}

	sc.SendFunc = func(text string, isFinal bool) error {
		body := strings.TrimSpace(text)
		if body != "" {
			body += " "
		}
		payload := map[string]any{"text": body}
		if isFinal {
			payload["flush"] = true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(payload)
	}
	sc.CloseFunc = closeConn

	go func() {
		defer sc.FinishAudio()
		defer sc.Close()
		for {
			select {
			case <-ctx.Done():
				sc.SetError(ctx.Err())
				return
			case <-ctxDone:
				return
			default:
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				sc.SetError(err)
				return
			}
			var msg map[string]json.RawMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if audioB64 := decodeStringRaw(msg["audio"]); audioB64 != "" {
				audio, err := base64.StdEncoding.DecodeString(audioB64)
				if err == nil && len(audio) > 0 {
					if !sc.PushAudio(audio) {
						return
					}
				}
			}
			if decodeBoolRaw(msg["isFinal"]) || decodeBoolRaw(msg["is_final"]) {
				return
			}
		}
	}()

	return sc, nil
}

func buildElevenLabsWSURL(base, voiceID, modelID string) (string, error) {
	if strings.TrimSpace(base) == "" {
		base = elevenLabsDefaultWSBase
	}
	base = strings.ReplaceAll(base, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", voice.NewError(voice.KindSynthesisProvider, "invalid elevenlabs ws url", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/v1/text-to-speech/" + url.PathEscape(voiceID) + "/stream-input"
	}
	q := u.Query()
	if q.Get("model_id") == "" && modelID != "" {
		q.Set("model_id", modelID)
	}
	if q.Get("output_format") == "" {
		q.Set("output_format", fmt.Sprintf("pcm_%d", wsSampleRate))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeStringRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func decodeBoolRaw(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var out bool
	if err := json.Unmarshal(raw, &out); err != nil {
		return false
	}
	return out
}
