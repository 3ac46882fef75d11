package chime

import (
	"fmt"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-assistant/logging"
)

const (
	sampleRate = 44100
	amplitude  = 0.3

	// fadeSamples tapers note edges so they do not click
	fadeSamples = 64
)

type playerImpl struct {
	mu     sync.Mutex
	closed bool
}

// NewPlayer opens the default output device lazily per cue. Initialization
// failure is returned so the caller can fall back to Noop.
func NewPlayer() (Interface, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio output unavailable: %w", err)
	}

	return &playerImpl{}, nil
}

func (p *playerImpl) Play(cue Cue) {
	go func() {
		if err := p.play(cue); err != nil {
			logging.Warnw("chime playback failed", "cue", cue.Name, "error", err)
		}
	}()
}

func (p *playerImpl) play(cue Cue) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	out := render(cue)
	if len(out) == 0 {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRate, len(out), &out)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	if err := stream.Write(); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}

	return nil
}

func (p *playerImpl) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return portaudio.Terminate()
}

// render flattens a cue into one sample buffer, silence between notes
// included, so the whole sequence goes out in a single write.
func render(cue Cue) []int16 {
	pause := make([]int16, int(float64(sampleRate)*cue.Pause.Seconds()))

	var samples []int16
	for i, tone := range cue.Tones {
		if i > 0 {
			samples = append(samples, pause...)
		}

		samples = append(samples, renderTone(tone)...)
	}

	return samples
}

func renderTone(tone Tone) []int16 {
	n := int(float64(sampleRate) * tone.Duration.Seconds())
	out := make([]int16, n)

	for i := range out {
		v := amplitude * math.Sin(2*math.Pi*tone.Frequency*float64(i)/sampleRate)

		if i < fadeSamples {
			v *= float64(i) / fadeSamples
		}
		if n-i <= fadeSamples {
			v *= float64(n-i) / fadeSamples
		}

		out[i] = int16(v * math.MaxInt16)
	}

	return out
}
