package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/voxterview/voxterview/pkg/voice"
)

// playbackRate is the fixed output rate. oto allows one context per process,
// so everything is converted to this rate before playback.
const playbackRate = 24000

var (
	otoOnce    sync.Once
	otoCtx     *oto.Context
	otoInitErr error
)

func playbackContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		opts := &oto.NewContextOptions{
			SampleRate:   playbackRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   4800, // ~100ms at 24kHz mono 16-bit
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(opts)
		if otoInitErr == nil {
			<-ready
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	return otoCtx, nil
}

// Player renders audio bytes through the default output device, falling back
// to an external command-line player for formats the in-process path cannot
// serve.
type Player struct {
	goos string

	// exec hook, replaced in tests
	run func(ctx context.Context, name string, args ...string) error
}

// NewPlayer creates a Player for the current operating system.
func NewPlayer() *Player {
	return &Player{
		goos: runtime.GOOS,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// PlayPCM plays mono S16LE samples at the given rate, blocking until done.
func (p *Player) PlayPCM(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}
	octx, err := playbackContext()
	if err != nil {
		return voice.NewError(voice.KindSynthesisProvider, "open audio output", err)
	}
	if sampleRate != playbackRate {
		pcm = resamplePCM16(pcm, sampleRate, playbackRate)
	}

	player := octx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// PlayMP3 decodes and plays MP3 audio. Decoding happens in-process; if that
// fails, the bytes go to an external player via a temp file.
func (p *Player) PlayMP3(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	pcm, rate, err := decodeMP3(data)
	if err == nil {
		return p.PlayPCM(ctx, pcm, rate)
	}
	return p.playExternal(ctx, data, ".mp3")
}

// decodeMP3 converts MP3 bytes to mono S16LE PCM. go-mp3 always outputs
// 16-bit stereo, so the result is downmixed.
func decodeMP3(data []byte) ([]byte, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	stereo, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}
	return downmixStereo16(stereo), dec.SampleRate(), nil
}

// playExternal writes audio to a temp file and hands it to the first working
// command-line player for the platform.
func (p *Player) playExternal(ctx context.Context, data []byte, ext string) error {
	f, err := os.CreateTemp("", "voxterview-*"+ext)
	if err != nil {
		return voice.NewError(voice.KindSynthesisProvider, "create temp audio file", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return voice.NewError(voice.KindSynthesisProvider, "write temp audio file", err)
	}
	f.Close()

	var candidates [][]string
	switch p.goos {
	case "darwin":
		candidates = [][]string{
			{"afplay", path},
			{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", path},
		}
	case "windows":
		candidates = [][]string{
			{"powershell", "-NoProfile", "-Command",
				fmt.Sprintf("(New-Object Media.SoundPlayer %s).PlaySync()", psQuote(path))},
		}
	default:
		candidates = [][]string{
			{"mpg123", "-q", path},
			{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", path},
		}
	}

	var lastErr error
	for _, c := range candidates {
		if err := p.run(ctx, c[0], c[1:]...); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return voice.NewError(voice.KindSynthesisProvider, "no audio player available", lastErr)
}

// downmixStereo16 averages interleaved stereo S16LE into mono S16LE.
func downmixStereo16(stereo []byte) []byte {
	frames := len(stereo) / 4
	mono := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		l := int16(uint16(stereo[4*i]) | uint16(stereo[4*i+1])<<8)
		r := int16(uint16(stereo[4*i+2]) | uint16(stereo[4*i+3])<<8)
		m := int16((int32(l) + int32(r)) / 2)
		mono[2*i] = byte(m)
		mono[2*i+1] = byte(uint16(m) >> 8)
	}
	return mono
}

// resamplePCM16 converts mono S16LE between rates with linear interpolation.
func resamplePCM16(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate {
		return pcm
	}
	in := len(pcm) / 2
	if in == 0 {
		return nil
	}
	samples := make([]int16, in)
	for i := range samples {
		samples[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}

	n := int(int64(in) * int64(toRate) / int64(fromRate))
	out := make([]byte, n*2)
	ratio := float64(fromRate) / float64(toRate)
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		var v int16
		if j >= in-1 {
			v = samples[in-1]
		} else {
			frac := pos - float64(j)
			v = int16(float64(samples[j])*(1-frac) + float64(samples[j+1])*frac)
		}
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}
