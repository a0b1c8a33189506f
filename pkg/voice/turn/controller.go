package turn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxterview/voxterview/pkg/voice"
)

// Config bounds how much of the engine's output gets spoken aloud. Spoken
// lists are kept short so the closing summary stays listenable.
type Config struct {
	MaxSpokenSignals int
	MaxSpokenDomains int
	MaxSpokenModules int
}

// DefaultConfig returns the standard spoken-list limits.
func DefaultConfig() Config {
	return Config{
		MaxSpokenSignals: 3,
		MaxSpokenDomains: 4,
		MaxSpokenModules: 5,
	}
}

const (
	repromptText   = "I didn't catch that. Could you say it again?"
	skipNoticeText = "No problem, let's move on to the next question."
	skipAckText    = "Sure, skipping that one."
	pausedText     = "Interview paused. Your progress has been saved."

	// skippedResponse is recorded when a follow-up gets no usable answer, so
	// the engine sees the follow-up as asked rather than lost.
	skippedResponse = "[skipped]"
)

// Controller runs the spoken turn loop against an Engine. It intercepts
// voice commands before answers reach the engine, re-prompts once on
// silence, and guarantees progress is saved exactly once however the
// session ends.
type Controller struct {
	speaker  Speaker
	listener Listener
	fallback Listener
	engine   Engine
	cfg      Config
	log      *zap.Logger

	mu            sync.Mutex
	state         State
	running       bool
	saved         bool
	usingFallback bool
	lastSpoken    string
}

// NewController wires a controller. The listener is typically the pipeline;
// a fallback listener (typed input) can be installed for when the capture
// device goes away.
func NewController(speaker Speaker, listener Listener, engine Engine, cfg Config, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		speaker:  speaker,
		listener: listener,
		engine:   engine,
		cfg:      cfg,
		log:      log,
	}
}

// SetFallbackListener installs the listener used after the capture device
// becomes unavailable.
func (c *Controller) SetFallbackListener(l Listener) {
	c.mu.Lock()
	c.fallback = l
	c.mu.Unlock()
}

// State returns the controller's current position in the turn cycle.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Running reports whether a Run call is in progress.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Run drives the session until completion, a pause command, cancellation, or
// a fatal error. Progress is saved before Run returns on every path. Calling
// Run again after a pause resumes where the engine left off.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("controller is already running")
	}
	c.running = true
	c.saved = false
	c.mu.Unlock()

	defer func() {
		c.ensureSaved()
		c.mu.Lock()
		c.running = false
		c.state = StateDone
		c.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.setState(StateAwaitingQuestion)

		if c.engine.IsComplete(ctx) {
			return c.finish(ctx)
		}
		q, err := c.engine.NextQuestion(ctx)
		if err != nil {
			c.log.Error("fetching next question failed", zap.Error(err))
			return c.finish(ctx)
		}
		if q == nil {
			// No question and not complete still means there is nothing
			// left to ask.
			return c.finish(ctx)
		}

		c.log.Info("asking question",
			zap.String("id", q.ID),
			zap.String("phase", q.Phase),
			zap.Float64("percent", q.PercentComplete))

		if q.Announcement != "" {
			if err := c.say(ctx, q.Announcement); err != nil {
				return err
			}
		}
		if err := c.ask(ctx, q.Text); err != nil {
			return err
		}

		response, cmd, err := c.listenWithRetry(ctx)
		if err != nil {
			return err
		}

		switch cmd {
		case CommandPause:
			return c.pause(ctx)
		case CommandSkip:
			c.skip(ctx, q.ID)
			continue
		}

		c.setState(StateProcessing)
		result, err := c.engine.ProcessResponse(ctx, q.ID, response)
		if err != nil {
			c.log.Warn("engine rejected response, skipping question",
				zap.String("id", q.ID), zap.Error(err))
			c.skip(ctx, q.ID)
			continue
		}

		if err := c.acknowledge(ctx, result); err != nil {
			return err
		}
		if result != nil && result.FollowUp != "" {
			paused, err := c.followUp(ctx, q.ID, result.FollowUp)
			if err != nil {
				return err
			}
			if paused {
				return c.pause(ctx)
			}
		}
	}
}

// Resume re-enters the turn loop after a pause. The engine keeps its own
// position, so the session continues with the next unanswered question.
func (c *Controller) Resume(ctx context.Context) error {
	if c.engine.IsComplete(ctx) {
		return errors.New("session is already complete")
	}
	return c.Run(ctx)
}

// AskField collects one required free-form value before the interview
// proper, re-prompting until the answer is non-empty. Voice commands are not
// intercepted here; only cancellation aborts.
func (c *Controller) AskField(ctx context.Context, prompt string) (string, error) {
	for {
		if err := c.ask(ctx, prompt); err != nil {
			return "", err
		}
		c.setState(StateListening)
		text, err := c.listen(ctx)
		if err != nil {
			return "", err
		}
		if t := strings.TrimSpace(text); t != "" {
			return t, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
}

// listenWithRetry captures one answer for the current prompt. Silence gets a
// single re-prompt; a second silence turns into a skip. Repeat commands
// re-speak the prompt without burning the retry.
func (c *Controller) listenWithRetry(ctx context.Context) (string, Command, error) {
	reprompted := false
	for {
		if reprompted {
			c.setState(StateRetryListen)
		} else {
			c.setState(StateListening)
		}

		text, err := c.listen(ctx)
		if err != nil {
			return "", CommandNone, err
		}

		switch cmd := ParseCommand(text); cmd {
		case CommandRepeat:
			if err := c.say(ctx, c.lastPrompt()); err != nil {
				return "", CommandNone, err
			}
			continue
		case CommandPause:
			return "", cmd, nil
		case CommandSkip:
			if err := c.say(ctx, skipAckText); err != nil {
				return "", CommandNone, err
			}
			return "", cmd, nil
		}

		if strings.TrimSpace(text) == "" {
			if !reprompted {
				reprompted = true
				if err := c.say(ctx, repromptText); err != nil {
					return "", CommandNone, err
				}
				continue
			}
			if err := c.say(ctx, skipNoticeText); err != nil {
				return "", CommandNone, err
			}
			return "", CommandSkip, nil
		}
		return text, CommandNone, nil
	}
}

// listen performs one capture attempt. A missing capture device swaps in the
// fallback listener for the rest of the session; a model load failure is
// fatal; anything else is treated as silence.
func (c *Controller) listen(ctx context.Context) (string, error) {
	for {
		text, err := c.currentListener().Listen(ctx)
		if err == nil {
			return text, nil
		}
		if voice.IsDeviceUnavailable(err) && c.swapToFallback() {
			c.log.Warn("audio input unavailable, switching to typed input", zap.Error(err))
			continue
		}
		if voice.IsModelLoad(err) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Warn("listen failed, treating as silence", zap.Error(err))
		return "", nil
	}
}

// followUp asks one clarifying question and records its answer. A silent or
// skipped follow-up is recorded as skipped so the engine never re-asks it.
func (c *Controller) followUp(ctx context.Context, questionID, prompt string) (paused bool, err error) {
	if err := c.ask(ctx, prompt); err != nil {
		return false, err
	}
	for {
		c.setState(StateListening)
		text, err := c.listen(ctx)
		if err != nil {
			return false, err
		}

		switch ParseCommand(text) {
		case CommandPause:
			return true, nil
		case CommandRepeat:
			if err := c.say(ctx, prompt); err != nil {
				return false, err
			}
			continue
		case CommandSkip:
			text = ""
		}

		if strings.TrimSpace(text) == "" {
			text = skippedResponse
		}
		c.setState(StateProcessing)
		if _, err := c.engine.ProcessResponse(ctx, questionID, text); err != nil {
			c.log.Warn("engine rejected follow-up response",
				zap.String("id", questionID), zap.Error(err))
		}
		return false, nil
	}
}

// acknowledge speaks a short note when the engine detected signals in the
// answer. Names are sorted so the spoken list is deterministic.
func (c *Controller) acknowledge(ctx context.Context, result *ResponseResult) error {
	if result == nil || len(result.SignalsDetected) == 0 {
		return nil
	}
	names := make([]string, 0, len(result.SignalsDetected))
	for name := range result.SignalsDetected {
		names = append(names, name)
	}
	sort.Strings(names)
	return c.say(ctx, fmt.Sprintf("Thanks, that tells me about %s.",
		humanList(names, c.cfg.MaxSpokenSignals)))
}

func (c *Controller) skip(ctx context.Context, questionID string) {
	if err := c.engine.SkipQuestion(ctx, questionID); err != nil {
		c.log.Warn("marking question skipped failed",
			zap.String("id", questionID), zap.Error(err))
	}
}

func (c *Controller) pause(ctx context.Context) error {
	c.setState(StateProcessing)
	if path, err := c.engine.Save(ctx); err != nil {
		c.log.Error("saving on pause failed", zap.Error(err))
	} else {
		c.markSaved()
		c.log.Info("progress saved on pause", zap.String("path", path))
	}
	return c.say(ctx, pausedText)
}

// finish speaks the closing summary. Saving is left to the deferred
// guarantee in Run so it happens exactly once.
func (c *Controller) finish(ctx context.Context) error {
	c.setState(StateProcessing)
	sum, err := c.engine.Summary(ctx)
	if err != nil {
		c.log.Error("building summary failed", zap.Error(err))
	}
	return c.say(ctx, c.closingText(sum))
}

func (c *Controller) closingText(sum *Summary) string {
	var b strings.Builder
	b.WriteString("That's the end of the interview. Thank you for your time.")
	if sum == nil {
		return b.String()
	}
	if len(sum.DomainsCovered) > 0 {
		fmt.Fprintf(&b, " We covered %s.",
			humanList(sum.DomainsCovered, c.cfg.MaxSpokenDomains))
	}
	if len(sum.RecommendedModules) > 0 {
		fmt.Fprintf(&b, " Based on our conversation, I'd suggest starting with %s.",
			humanList(sum.RecommendedModules, c.cfg.MaxSpokenModules))
	}
	return b.String()
}

// ensureSaved persists progress if nothing else already did. It uses a fresh
// context so a cancelled session still gets saved.
func (c *Controller) ensureSaved() {
	c.mu.Lock()
	saved := c.saved
	c.mu.Unlock()
	if saved {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	path, err := c.engine.Save(ctx)
	if err != nil {
		c.log.Error("final save failed", zap.Error(err))
		return
	}
	c.markSaved()
	c.log.Info("progress saved", zap.String("path", path))
}

func (c *Controller) say(ctx context.Context, text string) error {
	c.setState(StateSpeaking)
	return c.speaker.Speak(ctx, text)
}

func (c *Controller) ask(ctx context.Context, text string) error {
	c.mu.Lock()
	c.lastSpoken = text
	c.mu.Unlock()
	return c.say(ctx, text)
}

func (c *Controller) lastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSpoken
}

func (c *Controller) currentListener() Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}

func (c *Controller) swapToFallback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fallback == nil || c.usingFallback {
		return false
	}
	c.listener = c.fallback
	c.usingFallback = true
	return true
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) markSaved() {
	c.mu.Lock()
	c.saved = true
	c.mu.Unlock()
}

// humanList joins up to max items into spoken prose, "a, b and c".
func humanList(items []string, max int) string {
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
