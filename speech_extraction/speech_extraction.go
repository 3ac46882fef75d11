package speech_extraction

import (
	"context"
	"fmt"
	"time"

	"voice-assistant/listener"
	"voice-assistant/logging"
	"voice-assistant/ring_buffer"
	"voice-assistant/speech_extraction/vad"
)

const (
	defaultSampleRate = 16000
	leadInSamples     = 8196

	// calibration derives the operating threshold as a fraction of the
	// ambient average, so normal speech clears it comfortably
	calibrationFactor = 0.3
)

type extractorImpl struct {
	capturer   listener.Capturer
	sampleRate int

	silenceDuration   time.Duration
	minSpeechDuration time.Duration
	maxRecordingTime  time.Duration
	calibrationWindow time.Duration
	threshold         float64

	utterances chan *Utterance
	dropped    int64
}

type Config struct {
	Capturer          listener.Capturer
	SampleRate        int
	SilenceDuration   time.Duration
	MinSpeechDuration time.Duration
	MaxRecordingTime  time.Duration
	CalibrationWindow time.Duration
	SilenceThreshold  float64
	QueueSize         int
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Capturer == nil {
		return nil, fmt.Errorf("capturer is nil")
	}

	if cfg.SilenceDuration <= 0 {
		return nil, fmt.Errorf("silence duration must be positive")
	}

	if cfg.MaxRecordingTime <= 0 {
		return nil, fmt.Errorf("max recording time must be positive")
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	queueSize := cfg.QueueSize
	if queueSize == 0 {
		queueSize = 4
	}

	return &extractorImpl{
		capturer:          cfg.Capturer,
		sampleRate:        sampleRate,
		silenceDuration:   cfg.SilenceDuration,
		minSpeechDuration: cfg.MinSpeechDuration,
		maxRecordingTime:  cfg.MaxRecordingTime,
		calibrationWindow: cfg.CalibrationWindow,
		threshold:         cfg.SilenceThreshold,
		utterances:        make(chan *Utterance, queueSize),
	}, nil
}

func (e *extractorImpl) Utterances() <-chan *Utterance {
	return e.utterances
}

// Calibrate averages ambient frame energy over the calibration window and
// replaces the static threshold. With no frames available (scripted capture,
// zero window) the configured default stays in effect.
func (e *extractorImpl) Calibrate(ctx context.Context) (float64, error) {
	if e.calibrationWindow <= 0 {
		return e.threshold, nil
	}

	var (
		captured time.Duration
		levels   []float64
	)

	for captured < e.calibrationWindow {
		select {
		case <-ctx.Done():
			return e.threshold, ctx.Err()
		case frame, ok := <-e.capturer.Frames():
			if !ok {
				return e.threshold, fmt.Errorf("capture stream ended during calibration")
			}

			levels = append(levels, vad.Energy(frame))
			captured += e.frameDuration(len(frame))
		}
	}

	if len(levels) == 0 {
		return e.threshold, nil
	}

	var sum float64
	for _, l := range levels {
		sum += l
	}

	avg := sum / float64(len(levels))
	if derived := avg * calibrationFactor; derived > 0 {
		e.threshold = derived
	}

	logging.Infow("calibration complete",
		"ambient_average", sum/float64(len(levels)),
		"silence_threshold", e.threshold)

	return e.threshold, nil
}

func (e *extractorImpl) Run(ctx context.Context) error {
	defer close(e.utterances)

	var (
		heardSomething bool
		quiet          bool
		silentFor      time.Duration
		speechFor      time.Duration
		totalFor       time.Duration
		frames         []int16
		startedAt      time.Time
	)

	detector := vad.New(leadInSamples)
	leadIn := ring_buffer.New(leadInSamples)

	reset := func() {
		heardSomething = false
		quiet = false
		silentFor = 0
		speechFor = 0
		totalFor = 0
		frames = nil
		leadIn.Clear()
		detector.Reset()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-e.capturer.Frames():
			if !ok {
				return nil
			}

			frameDur := e.frameDuration(len(frame))
			speech := detector.IsSpeech(frame, e.threshold)

			if !heardSomething {
				// keep a buffer of the first bit of audio before detection
				leadIn.Add(frame)

				if speech {
					heardSomething = true
					startedAt = time.Now()
					frames = append(frames, leadIn.Read()...)
					speechFor += frameDur
					totalFor += frameDur
				}

				continue
			}

			frames = append(frames, frame...)
			totalFor += frameDur

			if speech {
				quiet = false
				silentFor = 0
				speechFor += frameDur
			} else {
				quiet = true
				silentFor += frameDur
			}

			forced := totalFor >= e.maxRecordingTime
			done := (quiet && silentFor >= e.silenceDuration) || forced

			if !done {
				continue
			}

			if speechFor < e.minSpeechDuration {
				// too short to be a command; treat as noise
				logging.Debugw("discarding short utterance",
					"speech_ms", speechFor.Milliseconds(),
					"min_ms", e.minSpeechDuration.Milliseconds())
				reset()
				continue
			}

			u := &Utterance{
				Frames:       frames,
				SampleRate:   e.sampleRate,
				Start:        startedAt,
				End:          time.Now(),
				Complete:     true,
				ForcedCutoff: forced,
			}

			if forced {
				logging.Warnw("maximum recording time reached, forcing cutoff",
					"duration_ms", totalFor.Milliseconds())
			}

			e.emit(u)
			reset()
		}
	}
}

// emit queues a completed utterance. When the queue is full the oldest entry
// is dropped and erased rather than blocking capture or growing unbounded.
func (e *extractorImpl) emit(u *Utterance) {
	select {
	case e.utterances <- u:
		return
	default:
	}

	select {
	case old := <-e.utterances:
		old.Erase()
		e.dropped++
		logging.Warnw("utterance queue full, dropped oldest", "dropped_total", e.dropped)
	default:
	}

	select {
	case e.utterances <- u:
	default:
	}
}

func (e *extractorImpl) frameDuration(samples int) time.Duration {
	return time.Duration(float64(samples) / float64(e.sampleRate) * float64(time.Second))
}
