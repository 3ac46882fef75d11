package chime

import "time"

// Interface plays short tone cues that mark assistant state changes. Playback
// is asynchronous and best-effort: a missing output device never blocks or
// fails a turn.
type Interface interface {
	Play(cue Cue)
	Close() error
}

// Tone is a single sine note.
type Tone struct {
	Frequency float64
	Duration  time.Duration
}

// Cue is a named tone sequence with a fixed pause between notes.
type Cue struct {
	Name  string
	Tones []Tone
	Pause time.Duration
}

// Noop returns a player that ignores every cue. Used when chimes are
// disabled and in tests.
func Noop() Interface {
	return noopImpl{}
}

type noopImpl struct{}

func (noopImpl) Play(Cue) {}

func (noopImpl) Close() error { return nil }
