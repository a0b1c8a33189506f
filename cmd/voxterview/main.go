// Command voxterview runs a spoken interview session at the terminal.
//
// Usage:
//
//	go run cmd/voxterview/main.go
//
// Configuration comes from the environment (a .env file is honored):
// ELEVENLABS_API_KEY enables cloud speech, VOX_WHISPER_MODEL points at a
// ggml Whisper model, VOX_QUESTIONS at the question script. Without a
// working microphone the session falls back to typed answers.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/voxterview/voxterview/internal/config"
	"github.com/voxterview/voxterview/internal/interview"
	"github.com/voxterview/voxterview/pkg/voice"
	"github.com/voxterview/voxterview/pkg/voice/capture"
	"github.com/voxterview/voxterview/pkg/voice/stt"
	"github.com/voxterview/voxterview/pkg/voice/tts"
	"github.com/voxterview/voxterview/pkg/voice/turn"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil && err != context.Canceled {
		log.Error("session ended with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	script, err := interview.LoadScript(cfg.QuestionsPath)
	if err != nil {
		return fmt.Errorf("load question script: %w", err)
	}

	recorder := capture.NewRecorder(cfg.Voice.Capture, log)
	whisper := stt.NewWhisper(cfg.Voice.Transcribe, log)
	defer whisper.Close()
	speaker := tts.NewSpeaker(cfg.Voice.Speak, log)

	pipeline := voice.NewPipeline(recorder, whisper, speaker, log)
	engine := interview.NewEngine(script, cfg.SessionDir, log)

	log.Info("starting interview session",
		zap.String("session", engine.SessionID()),
		zap.String("script", cfg.QuestionsPath),
		zap.String("speech_provider", pipeline.Provider()),
		zap.Int("questions", len(script.Questions)))

	ctrl := turn.NewController(pipeline, pipeline, engine, turn.DefaultConfig(), log)
	ctrl.SetFallbackListener(turn.ListenerFunc(typedInput))

	if err := ctrl.Run(ctx); err != nil {
		return err
	}
	log.Info("session finished", zap.String("saved_to", engine.SessionPath()))
	return nil
}

// typedInput reads one line from stdin, used when audio capture is gone.
func typedInput(ctx context.Context) (string, error) {
	fmt.Print("> ")
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		r := bufio.NewReader(os.Stdin)
		line, err := r.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", nil
		}
		return res.line, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	return cfg.Build()
}
