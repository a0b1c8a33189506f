package voice

import (
	"context"

	"go.uber.org/zap"
)

// Transcript is the result of transcribing one utterance. Text may be empty:
// no speech detected is a valid outcome, distinct from transcription failure.
type Transcript struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Duration   float64 `json:"duration"`
}

// Recorder captures one utterance from the local input device.
type Recorder interface {
	RecordUntilSilence(ctx context.Context) ([]float32, error)
}

// Transcriber converts captured samples to text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (*Transcript, error)
}

// Synthesizer renders text as audible speech.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
	Provider() string
}

// Pipeline composes capture, transcription and synthesis into the
// speak/listen pair the turn controller consumes.
type Pipeline struct {
	rec Recorder
	stt Transcriber
	tts Synthesizer
	log *zap.Logger
}

// NewPipeline creates a pipeline from the given stages.
func NewPipeline(rec Recorder, stt Transcriber, tts Synthesizer, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{rec: rec, stt: stt, tts: tts, log: log}
}

// Speak renders text audibly, blocking until playback completes or is
// abandoned.
func (p *Pipeline) Speak(ctx context.Context, text string) error {
	return p.tts.Speak(ctx, text)
}

// Provider returns the active synthesis provider name.
func (p *Pipeline) Provider() string {
	return p.tts.Provider()
}

// Listen records one utterance and returns its transcript. An empty string
// means no speech was detected. Device absence surfaces as a typed
// DeviceUnavailable error so the caller can switch input modality.
func (p *Pipeline) Listen(ctx context.Context) (string, error) {
	samples, err := p.rec.RecordUntilSilence(ctx)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		p.log.Debug("no speech detected")
		return "", nil
	}

	tr, err := p.stt.Transcribe(ctx, samples, SampleRate)
	if err != nil {
		return "", err
	}
	p.log.Info("transcribed utterance",
		zap.String("text", tr.Text),
		zap.String("language", tr.Language),
		zap.Float64("confidence", tr.Confidence),
		zap.Float64("duration", tr.Duration))
	return tr.Text, nil
}
