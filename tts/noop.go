package tts

import "context"

// Noop returns a speaker that swallows everything. Used headless and in
// tests.
func Noop() Interface {
	return noopImpl{}
}

type noopImpl struct{}

func (noopImpl) Speak(context.Context, string) error {
	return nil
}
