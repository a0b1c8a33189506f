package tts

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeRenderer struct {
	id    string
	err   error
	calls int
}

func (f *fakeRenderer) name() string { return f.id }

func (f *fakeRenderer) attempt(ctx context.Context, text string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return ctx.Err()
}

func TestSpeak_FallsBackToNextStage(t *testing.T) {
	first := &fakeRenderer{id: "cloud", err: errors.New("network down")}
	second := &fakeRenderer{id: "system"}
	third := &fakeRenderer{id: "command"}
	s := newSpeakerWithChain([]renderer{first, second, third}, zap.NewNop())

	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
	if third.calls != 0 {
		t.Errorf("later stage called %d times after success", third.calls)
	}
}

func TestSpeak_AllStagesFailReturnsNil(t *testing.T) {
	first := &fakeRenderer{id: "cloud", err: errors.New("a")}
	second := &fakeRenderer{id: "system", err: errors.New("b")}
	s := newSpeakerWithChain([]renderer{first, second}, zap.NewNop())

	// Losing audio output must not end the session.
	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("expected nil after chain exhaustion, got %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("every stage should be attempted exactly once, got %d/%d", first.calls, second.calls)
	}
}

func TestSpeak_EmptyTextIsNoOp(t *testing.T) {
	for _, text := range []string{"", "   ", " \t\n"} {
		r := &fakeRenderer{id: "cloud"}
		s := newSpeakerWithChain([]renderer{r}, zap.NewNop())

		if err := s.Speak(context.Background(), text); err != nil {
			t.Fatalf("unexpected error for %q: %v", text, err)
		}
		if r.calls != 0 {
			t.Errorf("renderer called %d times for %q", r.calls, text)
		}
	}
}

func TestSpeak_ContextCancelAborts(t *testing.T) {
	first := &fakeRenderer{id: "cloud", err: errors.New("boom")}
	second := &fakeRenderer{id: "system"}
	s := newSpeakerWithChain([]renderer{first, second}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Speak(ctx, "hello"); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if second.calls != 0 {
		t.Error("cancellation must not fall through to the next stage")
	}
}

func TestProvider_NamesFirstStage(t *testing.T) {
	s := newSpeakerWithChain([]renderer{
		&fakeRenderer{id: "elevenlabs"},
		&fakeRenderer{id: "system"},
	}, zap.NewNop())
	if got := s.Provider(); got != "elevenlabs" {
		t.Errorf("Provider() = %q, want elevenlabs", got)
	}
}

func TestGenerateAudio_NoCloudReturnsNil(t *testing.T) {
	s := newSpeakerWithChain([]renderer{&fakeRenderer{id: "system"}}, zap.NewNop())
	audio, err := s.GenerateAudio(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audio != nil {
		t.Errorf("expected nil audio without a cloud provider, got %d bytes", len(audio))
	}
}
