package capture

import (
	"github.com/gen2brain/malgo"

	"github.com/voxterview/voxterview/pkg/voice"
)

// openMalgoStream opens the default capture device via miniaudio. The device
// callback converts S16LE frames to normalized float32 and re-chunks them to
// chunkSize before handing them to onChunk.
func openMalgoStream(chunkSize int, onChunk func([]float32)) (Stream, error) {
	ctxCfg := malgo.ContextConfig{}
	ctxCfg.ThreadPriority = malgo.ThreadPriorityRealtime

	mctx, err := malgo.InitContext(nil, ctxCfg, nil)
	if err != nil {
		return nil, voice.NewError(voice.KindDeviceUnavailable, "initialize audio context", err)
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil || len(infos) == 0 {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, voice.NewError(voice.KindDeviceUnavailable, "no capture device found", err)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = 1
	devCfg.SampleRate = uint32(voice.SampleRate)
	devCfg.PeriodSizeInFrames = uint32(chunkSize)

	// pending re-chunks whatever period size the backend actually delivers.
	// Only touched from the device callback.
	pending := make([]float32, 0, chunkSize*2)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			pending = append(pending, s16leToFloat32(input)...)
			for len(pending) >= chunkSize {
				chunk := make([]float32, chunkSize)
				copy(chunk, pending[:chunkSize])
				pending = pending[chunkSize:]
				onChunk(chunk)
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, devCfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, voice.NewError(voice.KindDeviceUnavailable, "open capture device", err)
	}

	return &malgoStream{device: device, ctx: mctx}, nil
}

type malgoStream struct {
	device *malgo.Device
	ctx    *malgo.AllocatedContext
}

func (s *malgoStream) Start() error {
	return s.device.Start()
}

func (s *malgoStream) Close() error {
	_ = s.device.Stop()
	s.device.Uninit()
	err := s.ctx.Uninit()
	s.ctx.Free()
	return err
}

func s16leToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		out[i] = float32(v) / 32768.0
	}
	return out
}
