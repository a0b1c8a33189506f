package capture

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voxterview/voxterview/pkg/voice"
)

// fakeStream feeds a scripted chunk sequence to the recorder, then repeats
// its final chunk until closed.
type fakeStream struct {
	chunks  [][]float32
	onChunk func([]float32)
	closed  atomic.Bool
}

func (f *fakeStream) Start() error {
	go func() {
		i := 0
		for !f.closed.Load() {
			chunk := f.chunks[i]
			if i < len(f.chunks)-1 {
				i++
			}
			f.onChunk(chunk)
			time.Sleep(time.Millisecond)
		}
	}()
	return nil
}

func (f *fakeStream) Close() error {
	f.closed.Store(true)
	return nil
}

func fakeStreamFunc(chunks [][]float32) StreamFunc {
	return func(chunkSize int, onChunk func([]float32)) (Stream, error) {
		return &fakeStream{chunks: chunks, onChunk: onChunk}, nil
	}
}

func chunk(value float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func testConfig() voice.CaptureConfig {
	return voice.CaptureConfig{
		SilenceThreshold: 0.01,
		SilenceDuration:  20 * time.Millisecond,
		MaxDuration:      300 * time.Millisecond,
		ChunkSize:        8,
	}
}

func newTestRecorder(cfg voice.CaptureConfig, chunks [][]float32) *Recorder {
	r := newRecorder(cfg, fakeStreamFunc(chunks), zap.NewNop())
	r.pollInterval = 2 * time.Millisecond
	return r
}

func TestRecordUntilSilence_NoSpeechReturnsEmptyAfterMaxDuration(t *testing.T) {
	cfg := testConfig()
	r := newTestRecorder(cfg, [][]float32{chunk(0.001, cfg.ChunkSize)})

	start := time.Now()
	buf, err := r.RecordUntilSilence(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) != 0 {
		t.Errorf("expected empty buffer when speech never starts, got %d samples", len(buf))
	}
	if elapsed < cfg.MaxDuration {
		t.Errorf("returned after %v, before max duration %v", elapsed, cfg.MaxDuration)
	}
}

func TestRecordUntilSilence_StopsAfterSilenceFollowingSpeech(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = 2 * time.Second
	// Loud burst, then silence forever.
	chunks := [][]float32{
		chunk(0.5, cfg.ChunkSize),
		chunk(0.5, cfg.ChunkSize),
		chunk(0.0, cfg.ChunkSize),
	}
	r := newTestRecorder(cfg, chunks)

	start := time.Now()
	buf, err := r.RecordUntilSilence(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) == 0 {
		t.Fatal("expected speech plus trailing silence in the buffer")
	}
	if elapsed >= cfg.MaxDuration {
		t.Errorf("silence rule did not stop the recording before max duration (%v)", elapsed)
	}

	// Trailing silence must be retained, not clipped.
	var silentTail bool
	tail := buf[len(buf)-cfg.ChunkSize:]
	if RMS(tail) <= cfg.SilenceThreshold {
		silentTail = true
	}
	if !silentTail {
		t.Error("expected the buffer to end with retained silence")
	}
}

func TestRecordUntilSilence_HooksFireOnce(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = 2 * time.Second
	chunks := [][]float32{
		chunk(0.5, cfg.ChunkSize),
		chunk(0.5, cfg.ChunkSize),
		chunk(0.0, cfg.ChunkSize),
	}
	r := newTestRecorder(cfg, chunks)

	var starts, ends atomic.Int32
	r.SetHooks(Hooks{
		OnSpeechStart: func() { starts.Add(1) },
		OnSpeechEnd:   func() { ends.Add(1) },
	})

	if _, err := r.RecordUntilSilence(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Hooks are fire-and-forget goroutines.
	time.Sleep(20 * time.Millisecond)

	if got := starts.Load(); got != 1 {
		t.Errorf("OnSpeechStart fired %d times, want 1", got)
	}
	if got := ends.Load(); got != 1 {
		t.Errorf("OnSpeechEnd fired %d times, want 1", got)
	}
}

func TestRecordUntilSilence_LeadingSilenceNotBuffered(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = 2 * time.Second
	chunks := [][]float32{
		chunk(0.0, cfg.ChunkSize),
		chunk(0.0, cfg.ChunkSize),
		chunk(0.5, cfg.ChunkSize),
		chunk(0.0, cfg.ChunkSize),
	}
	r := newTestRecorder(cfg, chunks)

	buf, err := r.RecordUntilSilence(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) == 0 {
		t.Fatal("expected a non-empty buffer")
	}
	// The first buffered chunk must be the speech chunk, not leading silence.
	head := buf[:cfg.ChunkSize]
	if RMS(head) <= cfg.SilenceThreshold {
		t.Error("leading silence was buffered before speech started")
	}
}

func TestRecordUntilSilence_ContextCancel(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = 10 * time.Second
	r := newTestRecorder(cfg, [][]float32{chunk(0.0, cfg.ChunkSize)})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, err := r.RecordUntilSilence(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRecordFixedDuration(t *testing.T) {
	cfg := testConfig()
	r := newTestRecorder(cfg, [][]float32{chunk(0.2, cfg.ChunkSize)})

	buf, err := r.RecordFixedDuration(context.Background(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) == 0 {
		t.Error("expected samples from fixed-duration recording")
	}
	if len(buf)%cfg.ChunkSize != 0 {
		t.Errorf("buffer length %d is not chunk-aligned", len(buf))
	}
}

func TestRecordUntilSilence_DeviceUnavailable(t *testing.T) {
	open := func(chunkSize int, onChunk func([]float32)) (Stream, error) {
		return nil, voice.NewError(voice.KindDeviceUnavailable, "no capture device found", nil)
	}
	r := newRecorder(testConfig(), open, zap.NewNop())

	_, err := r.RecordUntilSilence(context.Background())
	if !voice.IsDeviceUnavailable(err) {
		t.Fatalf("expected device-unavailable error, got %v", err)
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float64
	}{
		{"empty", nil, 0},
		{"zeros", []float32{0, 0, 0}, 0},
		{"unit", []float32{1, -1, 1, -1}, 1},
		{"half", []float32{0.5, -0.5}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.samples)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("RMS() = %v, want %v", got, tt.want)
			}
		})
	}
}
