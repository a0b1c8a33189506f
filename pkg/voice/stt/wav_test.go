package stt

import (
	"encoding/binary"
	"testing"
)

func buildWAV(sampleRate int, channels int, frames []int16) []byte {
	dataLen := len(frames) * 2
	buf := make([]byte, 0, 44+dataLen)

	le16 := func(v int) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b
	}
	le32 := func(v int) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b
	}

	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, le32(36+dataLen)...)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = append(buf, le32(16)...)
	buf = append(buf, le16(1)...) // PCM
	buf = append(buf, le16(channels)...)
	buf = append(buf, le32(sampleRate)...)
	buf = append(buf, le32(sampleRate*channels*2)...)
	buf = append(buf, le16(channels*2)...)
	buf = append(buf, le16(16)...)
	buf = append(buf, []byte("data")...)
	buf = append(buf, le32(dataLen)...)
	for _, f := range frames {
		buf = append(buf, le16(int(f))...)
	}
	return buf
}

func TestDecodeWAV_Mono(t *testing.T) {
	data := buildWAV(16000, 1, []int16{0, 16384, -32768})
	samples, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d, want 16000", rate)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[1] != 0.5 {
		t.Errorf("samples[1] = %v, want 0.5", samples[1])
	}
	if samples[2] != -1.0 {
		t.Errorf("samples[2] = %v, want -1.0", samples[2])
	}
}

func TestDecodeWAV_StereoDownmix(t *testing.T) {
	// One frame: L=16384 R=0 mixes to 0.25.
	data := buildWAV(44100, 2, []int16{16384, 0})
	samples, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate = %d, want 44100", rate)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if samples[0] != 0.25 {
		t.Errorf("samples[0] = %v, want 0.25", samples[0])
	}
}

func TestDecodeWAV_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("not a wav file at all")},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected a decode error")
			}
		})
	}
}
