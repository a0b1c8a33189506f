package interview

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func testScript() *Script {
	return &Script{
		Title: "Backend screen",
		Questions: []ScriptQuestion{
			{ID: "q1", Text: "Tell me about a recent project.", Phase: "experience",
				FollowUp: "What was your specific role?", Signals: []string{"ownership", "testing"},
				Module: "project-deep-dive"},
			{ID: "q2", Text: "How do you debug a latency spike?", Phase: "operations",
				Signals: []string{"profiling"}, Module: "observability-basics"},
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(testScript(), t.TempDir(), zap.NewNop())
}

func TestNextQuestion_OrderAndAnnouncements(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	q1, err := e.NextQuestion(ctx)
	if err != nil || q1 == nil {
		t.Fatalf("q1: %v, %v", q1, err)
	}
	if q1.ID != "q1" || q1.Announcement == "" {
		t.Errorf("first question should announce its phase: %+v", q1)
	}
	if q1.PercentComplete != 0 {
		t.Errorf("percent = %v, want 0", q1.PercentComplete)
	}

	q2, _ := e.NextQuestion(ctx)
	if q2.ID != "q2" || q2.Announcement == "" {
		t.Errorf("phase change should announce: %+v", q2)
	}
	if q2.PercentComplete != 50 {
		t.Errorf("percent = %v, want 50", q2.PercentComplete)
	}

	if !e.IsComplete(ctx) {
		t.Error("engine should be complete after the last question")
	}
	if q3, _ := e.NextQuestion(ctx); q3 != nil {
		t.Errorf("expected nil after exhaustion, got %+v", q3)
	}
}

func TestProcessResponse_SignalsAndFollowUp(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.NextQuestion(ctx)

	// Short answer with one signal keyword triggers the follow-up.
	res, err := e.ProcessResponse(ctx, "q1", "I had full ownership")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SignalsDetected["ownership"] != 1.0 {
		t.Errorf("signals = %v", res.SignalsDetected)
	}
	if res.FollowUp != "What was your specific role?" {
		t.Errorf("follow-up = %q", res.FollowUp)
	}

	// The follow-up answer never re-triggers the follow-up.
	res, err = e.ProcessResponse(ctx, "q1", "lead")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FollowUp != "" {
		t.Errorf("follow-up asked twice: %q", res.FollowUp)
	}
}

func TestProcessResponse_LongAnswerNoFollowUp(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.NextQuestion(ctx)

	res, err := e.ProcessResponse(ctx, "q1",
		"I designed and shipped the ingestion pipeline end to end with thorough testing and rollout plans")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FollowUp != "" {
		t.Errorf("long answers should not trigger follow-up: %q", res.FollowUp)
	}
}

func TestProcessResponse_UnknownQuestion(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.ProcessResponse(context.Background(), "nope", "hi"); err == nil {
		t.Fatal("expected an error for an unknown question id")
	}
}

func TestSave_WritesSessionFile(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine(testScript(), dir, zap.NewNop())
	ctx := context.Background()

	e.NextQuestion(ctx)
	e.ProcessResponse(ctx, "q1", "a fine answer with plenty of words to avoid any follow up at all")
	e.SkipQuestion(ctx, "q2")

	path, err := e.Save(ctx)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if path != filepath.Join(dir, e.SessionID()+".json") {
		t.Errorf("save path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("session file missing: %v", err)
	}
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		t.Fatalf("session file is not valid JSON: %v", err)
	}
	if sf.SessionID != e.SessionID() {
		t.Errorf("session id = %q", sf.SessionID)
	}
	if len(sf.Answers) != 1 || sf.Answers[0].QuestionID != "q1" {
		t.Errorf("answers = %+v", sf.Answers)
	}
	if len(sf.Skipped) != 1 || sf.Skipped[0] != "q2" {
		t.Errorf("skipped = %v", sf.Skipped)
	}
	if sf.NextIndex != 1 {
		t.Errorf("next index = %d, want 1", sf.NextIndex)
	}
}

func TestSummary_DomainsAndModules(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.NextQuestion(ctx)
	// Answer q1 with a signal: its module should not be recommended.
	e.ProcessResponse(ctx, "q1", "I took ownership of the whole rollout and the testing strategy too")
	e.NextQuestion(ctx)
	// Skip q2: its module should be recommended.
	e.SkipQuestion(ctx, "q2")

	sum, err := e.Summary(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.DomainsCovered) != 1 || sum.DomainsCovered[0] != "experience" {
		t.Errorf("domains = %v", sum.DomainsCovered)
	}
	if len(sum.RecommendedModules) != 1 || sum.RecommendedModules[0] != "observability-basics" {
		t.Errorf("modules = %v", sum.RecommendedModules)
	}
}

func TestLoadScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.json")
	os.WriteFile(path, []byte(`{"questions":[{"text":"Only one?"}]}`), 0o644)

	s, err := LoadScript(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Questions) != 1 || s.Questions[0].ID != "q1" {
		t.Errorf("missing ids should be generated: %+v", s.Questions)
	}

	if _, err := LoadScript(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
	os.WriteFile(path, []byte(`{"questions":[]}`), 0o644)
	if _, err := LoadScript(path); err == nil {
		t.Error("expected an error for an empty script")
	}
}
