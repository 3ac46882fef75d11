package tts

import "context"

// Interface speaks assistant replies aloud. Cancelling the context stops
// playback mid-sentence.
type Interface interface {
	Speak(ctx context.Context, text string) error
}
