package speech_extraction

import (
	"time"

	"github.com/go-audio/audio"
)

// Utterance is one bounded span of captured speech. The frame slice is owned
// by the consumer once received and must be erased after use.
type Utterance struct {
	Frames       []int16
	SampleRate   int
	Start        time.Time
	End          time.Time
	Complete     bool
	ForcedCutoff bool
}

// Duration reports the audio length represented by the captured frames.
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate == 0 {
		return 0
	}

	return time.Duration(float64(len(u.Frames)) / float64(u.SampleRate) * float64(time.Second))
}

// Buffer wraps the frames for the transcription engine.
func (u *Utterance) Buffer() *audio.IntBuffer {
	data := make([]int, len(u.Frames))
	for i, s := range u.Frames {
		data[i] = int(s)
	}

	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  u.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
}

// Erase zeroes the backing samples so raw audio does not linger in memory
// after transcription.
func (u *Utterance) Erase() {
	for i := range u.Frames {
		u.Frames[i] = 0
	}

	u.Frames = u.Frames[:0]
}
