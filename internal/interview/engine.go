// Package interview is a file-backed content engine: questions come from a
// JSON script, answers and progress are persisted per session.
package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxterview/voxterview/pkg/voice/turn"
)

// ScriptQuestion is one scripted prompt.
type ScriptQuestion struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Phase        string   `json:"phase,omitempty"`
	Announcement string   `json:"announcement,omitempty"`
	FollowUp     string   `json:"follow_up,omitempty"`
	Signals      []string `json:"signals,omitempty"`
	Module       string   `json:"module,omitempty"`
}

// Script is a question file.
type Script struct {
	Title     string           `json:"title,omitempty"`
	Questions []ScriptQuestion `json:"questions"`
}

// LoadScript reads a Script from a JSON file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse question script %s: %w", path, err)
	}
	if len(s.Questions) == 0 {
		return nil, fmt.Errorf("question script %s has no questions", path)
	}
	for i := range s.Questions {
		if s.Questions[i].ID == "" {
			s.Questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return &s, nil
}

// Answer is one recorded response.
type Answer struct {
	QuestionID string    `json:"question_id"`
	Response   string    `json:"response"`
	FollowUp   bool      `json:"follow_up,omitempty"`
	Signals    []string  `json:"signals,omitempty"`
	At         time.Time `json:"at"`
}

// sessionFile is the persisted session shape.
type sessionFile struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title,omitempty"`
	StartedAt time.Time `json:"started_at"`
	SavedAt   time.Time `json:"saved_at"`
	NextIndex int       `json:"next_index"`
	Answers   []Answer  `json:"answers"`
	Skipped   []string  `json:"skipped"`
}

// followUpMinWords is the answer length below which the scripted follow-up
// gets asked.
const followUpMinWords = 8

// Engine walks a Script in order, detects signal keywords in answers, and
// persists the session as JSON after each save. It implements turn.Engine.
type Engine struct {
	script    *Script
	sessionID string
	dir       string
	log       *zap.Logger

	mu        sync.Mutex
	idx       int
	lastPhase string
	answers   []Answer
	skipped   []string
	followed  map[string]bool
	startedAt time.Time
}

// NewEngine creates a session over the given script. Session files are
// written under dir.
func NewEngine(script *Script, dir string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		script:    script,
		sessionID: uuid.NewString(),
		dir:       dir,
		log:       log,
		followed:  make(map[string]bool),
		startedAt: time.Now().UTC(),
	}
}

// SessionID returns the session identifier.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// NextQuestion returns the next scripted prompt, announcing phase changes.
func (e *Engine) NextQuestion(ctx context.Context) (*turn.Question, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idx >= len(e.script.Questions) {
		return nil, nil
	}
	sq := e.script.Questions[e.idx]
	e.idx++

	q := &turn.Question{
		ID:              sq.ID,
		Text:            sq.Text,
		Phase:           sq.Phase,
		PercentComplete: float64(e.idx-1) / float64(len(e.script.Questions)) * 100,
	}
	if sq.Phase != "" && sq.Phase != e.lastPhase {
		if sq.Announcement != "" {
			q.Announcement = sq.Announcement
		} else {
			q.Announcement = fmt.Sprintf("Let's talk about %s.", sq.Phase)
		}
		e.lastPhase = sq.Phase
	}
	return q, nil
}

// ProcessResponse records the answer and scans it for the question's signal
// keywords. Short first answers trigger the scripted follow-up once.
func (e *Engine) ProcessResponse(ctx context.Context, questionID, response string) (*turn.ResponseResult, error) {
	sq := e.findQuestion(questionID)
	if sq == nil {
		return nil, fmt.Errorf("unknown question %q", questionID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	isFollowUp := e.followed[questionID] && hasAnswer(e.answers, questionID)
	signals := detectSignals(response, sq.Signals)

	e.answers = append(e.answers, Answer{
		QuestionID: questionID,
		Response:   response,
		FollowUp:   isFollowUp,
		Signals:    signals,
		At:         time.Now().UTC(),
	})

	result := &turn.ResponseResult{}
	for _, s := range signals {
		if result.SignalsDetected == nil {
			result.SignalsDetected = make(map[string]float64)
		}
		result.SignalsDetected[s] = 1.0
	}
	if !isFollowUp && sq.FollowUp != "" && !e.followed[questionID] &&
		len(strings.Fields(response)) < followUpMinWords {
		e.followed[questionID] = true
		result.FollowUp = sq.FollowUp
	}
	return result, nil
}

// SkipQuestion marks a question as passed.
func (e *Engine) SkipQuestion(ctx context.Context, questionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skipped = append(e.skipped, questionID)
	return nil
}

// IsComplete reports whether the script has been exhausted.
func (e *Engine) IsComplete(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idx >= len(e.script.Questions)
}

// Save writes the session file and returns its path. The directory is
// created on first use.
func (e *Engine) Save(ctx context.Context) (string, error) {
	e.mu.Lock()
	sf := sessionFile{
		SessionID: e.sessionID,
		Title:     e.script.Title,
		StartedAt: e.startedAt,
		SavedAt:   time.Now().UTC(),
		NextIndex: e.idx,
		Answers:   append([]Answer(nil), e.answers...),
		Skipped:   append([]string(nil), e.skipped...),
	}
	e.mu.Unlock()

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return "", err
	}
	path := e.SessionPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	e.log.Info("session saved",
		zap.String("path", path),
		zap.Int("answers", len(sf.Answers)),
		zap.Int("skipped", len(sf.Skipped)))
	return path, nil
}

// SessionPath returns where this session is persisted.
func (e *Engine) SessionPath() string {
	return filepath.Join(e.dir, e.sessionID+".json")
}

// Summary reports the phases that got at least one answer and recommends the
// modules attached to skipped or signal-free questions.
func (e *Engine) Summary(ctx context.Context) (*turn.Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	answered := make(map[string]bool)
	detected := make(map[string]bool)
	for _, a := range e.answers {
		answered[a.QuestionID] = true
		if len(a.Signals) > 0 {
			detected[a.QuestionID] = true
		}
	}
	skipped := make(map[string]bool)
	for _, id := range e.skipped {
		skipped[id] = true
	}

	domainSet := make(map[string]bool)
	var modules []string
	moduleSeen := make(map[string]bool)
	for _, sq := range e.script.Questions {
		if sq.Phase != "" && answered[sq.ID] {
			domainSet[sq.Phase] = true
		}
		if sq.Module == "" || moduleSeen[sq.Module] {
			continue
		}
		if skipped[sq.ID] || (answered[sq.ID] && !detected[sq.ID]) {
			moduleSeen[sq.Module] = true
			modules = append(modules, sq.Module)
		}
	}

	domains := make([]string, 0, len(domainSet))
	for d := range domainSet {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	return &turn.Summary{
		DomainsCovered:     domains,
		RecommendedModules: modules,
	}, nil
}

func (e *Engine) findQuestion(id string) *ScriptQuestion {
	for i := range e.script.Questions {
		if e.script.Questions[i].ID == id {
			return &e.script.Questions[i]
		}
	}
	return nil
}

func hasAnswer(answers []Answer, questionID string) bool {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// detectSignals returns the signal keywords present in the response,
// case-insensitively, in script order.
func detectSignals(response string, signals []string) []string {
	if len(signals) == 0 {
		return nil
	}
	lr := strings.ToLower(response)
	var out []string
	for _, s := range signals {
		if strings.Contains(lr, strings.ToLower(s)) {
			out = append(out, s)
		}
	}
	return out
}
