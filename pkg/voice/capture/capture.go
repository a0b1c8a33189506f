// Package capture records microphone input and detects utterance boundaries
// with a silence-duration rule instead of fixed-length recording.
package capture

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/voxterview/voxterview/pkg/voice"
)

// Hooks are fired exactly once at the speech-start and speech-end
// transitions. They run on their own goroutines so they can never block the
// audio thread.
type Hooks struct {
	OnSpeechStart func()
	OnSpeechEnd   func()
}

// Stream is a running capture stream delivering sample chunks to a callback.
type Stream interface {
	Start() error
	Close() error
}

// StreamFunc opens a capture stream that delivers mono float32 chunks of
// chunkSize samples to onChunk. The callback runs on the audio thread and
// must not block.
type StreamFunc func(chunkSize int, onChunk func([]float32)) (Stream, error)

// Recorder produces utterance-bounded audio buffers from the microphone.
type Recorder struct {
	cfg   voice.CaptureConfig
	open  StreamFunc
	hooks Hooks
	log   *zap.Logger

	// pollInterval is how often the waiting loop re-checks the silence
	// counters. Coarse on purpose; the audio callback does the counting.
	pollInterval time.Duration
}

// NewRecorder creates a Recorder backed by the default audio device.
func NewRecorder(cfg voice.CaptureConfig, log *zap.Logger) *Recorder {
	return newRecorder(cfg, openMalgoStream, log)
}

func newRecorder(cfg voice.CaptureConfig, open StreamFunc, log *zap.Logger) *Recorder {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		cfg:          cfg,
		open:         open,
		log:          log,
		pollInterval: 100 * time.Millisecond,
	}
}

// DefaultChunkSize is the capture chunk size in samples.
const DefaultChunkSize = 1024

// SetHooks installs the speech lifecycle hooks.
func (r *Recorder) SetHooks(h Hooks) {
	r.hooks = h
}

// RecordUntilSilence records until the configured run of trailing silence is
// observed after speech has started, or until MaxDuration elapses. If speech
// never starts, it returns an empty buffer: that is the normal "no speech
// detected" outcome, not an error.
func (r *Recorder) RecordUntilSilence(ctx context.Context) ([]float32, error) {
	gate := newSilenceGate(r.cfg, voice.SampleRate, r.hooks)

	stream, err := r.open(r.cfg.ChunkSize, gate.feed)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, voice.NewError(voice.KindDeviceUnavailable, "start capture stream", err)
	}

	deadline := time.Now().Add(r.cfg.MaxDuration)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if gate.silenceReached() {
			gate.fireSpeechEnd()
			r.log.Debug("utterance ended on silence",
				zap.Int("samples", gate.size()))
			return gate.take(), nil
		}

		if time.Now().After(deadline) {
			if !gate.speechStarted.Load() {
				r.log.Debug("no speech within max duration")
				return []float32{}, nil
			}
			gate.fireSpeechEnd()
			r.log.Debug("utterance ended on max duration",
				zap.Int("samples", gate.size()))
			return gate.take(), nil
		}
	}
}

// RecordFixedDuration records for a fixed duration with no silence
// detection. Intended for diagnostics and self-tests.
func (r *Recorder) RecordFixedDuration(ctx context.Context, d time.Duration) ([]float32, error) {
	var mu sync.Mutex
	var buf []float32
	collect := func(chunk []float32) {
		mu.Lock()
		buf = append(buf, chunk...)
		mu.Unlock()
	}

	stream, err := r.open(r.cfg.ChunkSize, collect)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, voice.NewError(voice.KindDeviceUnavailable, "start capture stream", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(d):
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]float32, len(buf))
	copy(out, buf)
	return out, nil
}

// silenceGate is the chunk-level state machine shared between the audio
// callback (single writer) and the polling loop (single reader). Counters
// are atomic so the callback never takes a lock held across a poll.
type silenceGate struct {
	threshold        float64
	chunksForSilence int64

	speechStarted atomic.Bool
	silenceRun    atomic.Int64
	endFired      atomic.Bool

	mu  sync.Mutex
	buf []float32

	hooks Hooks
}

func newSilenceGate(cfg voice.CaptureConfig, sampleRate int, hooks Hooks) *silenceGate {
	chunks := int64(math.Ceil(cfg.SilenceDuration.Seconds() * float64(sampleRate) / float64(cfg.ChunkSize)))
	if chunks < 1 {
		chunks = 1
	}
	return &silenceGate{
		threshold:        cfg.SilenceThreshold,
		chunksForSilence: chunks,
		hooks:            hooks,
	}
}

// feed classifies one chunk. Runs on the audio thread.
func (g *silenceGate) feed(chunk []float32) {
	if RMS(chunk) > g.threshold {
		if g.speechStarted.CompareAndSwap(false, true) {
			if g.hooks.OnSpeechStart != nil {
				go g.hooks.OnSpeechStart()
			}
		}
		g.silenceRun.Store(0)
		g.append(chunk)
		return
	}
	if g.speechStarted.Load() {
		// Trailing silence is retained so speech endings sound natural.
		g.silenceRun.Add(1)
		g.append(chunk)
	}
}

func (g *silenceGate) append(chunk []float32) {
	g.mu.Lock()
	g.buf = append(g.buf, chunk...)
	g.mu.Unlock()
}

func (g *silenceGate) silenceReached() bool {
	return g.speechStarted.Load() && g.silenceRun.Load() >= g.chunksForSilence
}

func (g *silenceGate) fireSpeechEnd() {
	if g.endFired.CompareAndSwap(false, true) && g.hooks.OnSpeechEnd != nil {
		go g.hooks.OnSpeechEnd()
	}
}

func (g *silenceGate) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buf)
}

func (g *silenceGate) take() []float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]float32, len(g.buf))
	copy(out, g.buf)
	return out
}

// RMS returns the root-mean-square energy of a chunk in normalized
// amplitude units.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
