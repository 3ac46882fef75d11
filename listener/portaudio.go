package listener

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-assistant/logging"
)

const (
	defaultSampleRate = 16000
	defaultFrameSize  = 1024
)

type portaudioImpl struct {
	sampleRate float64
	frameSize  int

	mu           sync.Mutex
	stream       *portaudio.Stream
	in           []int16
	frames       chan []int16
	audioRunning bool
	dropped      int64
}

type Config struct {
	SampleRate float64
	FrameSize  int
}

// NewPortAudio opens the default input device lazily on Start. A nil config
// selects 16kHz mono with 1024-sample frames.
func NewPortAudio(cfg *Config) (Capturer, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaultSampleRate
	}

	if cfg.FrameSize == 0 {
		cfg.FrameSize = defaultFrameSize
	}

	return &portaudioImpl{
		sampleRate: cfg.SampleRate,
		frameSize:  cfg.FrameSize,
		in:         make([]int16, cfg.FrameSize),
		frames:     make(chan []int16, 8),
	}, nil
}

func (p *portaudioImpl) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.audioRunning {
		if err := portaudio.Initialize(); err != nil {
			return &CaptureError{Err: fmt.Errorf("initialize: %w", err)}
		}

		p.audioRunning = true
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, p.sampleRate, len(p.in), p.in)
	if err != nil {
		return &CaptureError{Err: fmt.Errorf("open stream: %w", err)}
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return &CaptureError{Err: fmt.Errorf("start stream: %w", err)}
	}

	p.stream = stream

	go p.readLoop(ctx)

	return nil
}

func (p *portaudioImpl) readLoop(ctx context.Context) {
	defer close(p.frames)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := p.stream.Read(); err != nil {
			logging.Warnw("capture: stream read failed", "err", err)
			return
		}

		frame := make([]int16, len(p.in))
		copy(frame, p.in)

		select {
		case p.frames <- frame:
		case <-ctx.Done():
			return
		default:
			// consumer is behind; dropping the frame beats blocking capture
			p.dropped++
			logging.Warnw("capture: dropping frame, queue full", "dropped_total", p.dropped)
		}
	}
}

func (p *portaudioImpl) Frames() <-chan []int16 {
	return p.frames
}

func (p *portaudioImpl) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		_ = p.stream.Stop()
		_ = p.stream.Close()
		p.stream = nil
	}

	if p.audioRunning {
		if err := portaudio.Terminate(); err != nil {
			logging.Warnw("capture: error while freeing audio", "err", err)
		}

		p.audioRunning = false
	}

	return nil
}
