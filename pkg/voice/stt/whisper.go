package stt

import (
	"context"
	"io"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"

	"github.com/voxterview/voxterview/pkg/voice"
)

// Whisper is a local transcription engine. The model file is memory-mapped on
// first Transcribe call, not at construction, so the pipeline can start
// speaking before recognition is ever needed.
type Whisper struct {
	cfg voice.TranscribeConfig
	log *zap.Logger

	once    sync.Once
	model   whisper.Model
	loadErr error

	// Whisper contexts are not safe for concurrent use.
	mu sync.Mutex
}

// NewWhisper creates a Whisper engine. No model is loaded yet; a bad
// ModelPath surfaces on first use as a model-load error.
func NewWhisper(cfg voice.TranscribeConfig, log *zap.Logger) *Whisper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Whisper{cfg: cfg, log: log}
}

// Name identifies the backend.
func (w *Whisper) Name() string { return "whisper" }

// Close releases the model if it was loaded.
func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		err := w.model.Close()
		w.model = nil
		return err
	}
	return nil
}

func (w *Whisper) ensureModel() error {
	w.once.Do(func() {
		w.log.Info("loading speech recognition model",
			zap.String("path", w.cfg.ModelPath))
		model, err := whisper.New(w.cfg.ModelPath)
		if err != nil {
			w.loadErr = voice.NewError(voice.KindModelLoad, "load whisper model", err)
			return
		}
		w.model = model
	})
	return w.loadErr
}

// Transcribe runs inference over the buffer. Silence is filtered out first so
// long quiet stretches do not hallucinate text. An empty buffer short-circuits
// without touching the model.
func (w *Whisper) Transcribe(ctx context.Context, samples []float32, sampleRate int) (*voice.Transcript, error) {
	if len(samples) == 0 {
		return &voice.Transcript{Language: w.cfg.Language}, nil
	}
	if err := w.ensureModel(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	duration := float64(len(samples)) / float64(sampleRate)

	if sampleRate != whisper.SampleRate {
		samples = Resample(samples, sampleRate, whisper.SampleRate)
	}
	samples = NormalizeSamples(samples)
	samples = FilterSilence(samples, whisper.SampleRate, w.cfg.VADThreshold, w.cfg.VADMinSilence)
	if len(samples) == 0 {
		w.log.Debug("buffer was entirely silence after filtering")
		return &voice.Transcript{Language: w.cfg.Language, Duration: duration}, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, voice.NewError(voice.KindTranscription, "create whisper context", err)
	}
	if w.cfg.Language != "" {
		if err := wctx.SetLanguage(w.cfg.Language); err != nil {
			return nil, voice.NewError(voice.KindTranscription, "set language", err)
		}
	}
	if w.cfg.Threads > 0 {
		wctx.SetThreads(uint(w.cfg.Threads))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, voice.NewError(voice.KindTranscription, "run inference", err)
	}

	segs, err := collectSegments(wctx)
	if err != nil {
		return nil, voice.NewError(voice.KindTranscription, "read segments", err)
	}

	text, confidence := joinSegments(segs)
	w.log.Debug("transcription complete",
		zap.Int("segments", len(segs)),
		zap.Float64("confidence", confidence))

	return &voice.Transcript{
		Text:       text,
		Language:   w.cfg.Language,
		Confidence: confidence,
		Duration:   duration,
	}, nil
}

// TranscribeFile transcribes a 16-bit PCM WAV file.
func (w *Whisper) TranscribeFile(ctx context.Context, path string) (*voice.Transcript, error) {
	samples, rate, err := ReadWAV(path)
	if err != nil {
		return nil, voice.NewError(voice.KindTranscription, "read wav file", err)
	}
	return w.Transcribe(ctx, samples, rate)
}

// segment is the decoded slice of one recognized span.
type segment struct {
	text   string
	tokenP []float64
}

func collectSegments(wctx whisper.Context) ([]segment, error) {
	var segs []segment
	for {
		s, err := wctx.NextSegment()
		if err == io.EOF {
			return segs, nil
		}
		if err != nil {
			return nil, err
		}
		seg := segment{text: s.Text}
		for _, tok := range s.Tokens {
			seg.tokenP = append(seg.tokenP, float64(tok.P))
		}
		segs = append(segs, seg)
	}
}

// joinSegments concatenates segment texts and averages token probabilities
// into a single confidence value.
func joinSegments(segs []segment) (string, float64) {
	var parts []string
	var sum float64
	var n int
	for _, s := range segs {
		if t := strings.TrimSpace(s.text); t != "" {
			parts = append(parts, t)
		}
		for _, p := range s.tokenP {
			sum += p
			n++
		}
	}
	text := strings.Join(parts, " ")
	if n == 0 {
		return text, 0
	}
	return text, sum / float64(n)
}

// NormalizeSamples clamps the buffer into the [-1, 1] range, rescaling by the
// peak when any sample exceeds it.
func NormalizeSamples(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	if peak <= 1 {
		return samples
	}
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}
	return out
}

// Resample converts samples between rates with linear interpolation. Good
// enough for speech recognition input.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(toRate) / int64(fromRate))
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	ratio := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}
