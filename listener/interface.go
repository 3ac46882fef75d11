package listener

import (
	"context"
	"fmt"
)

// Capturer is the platform audio-capture capability. Implementations push
// fixed-size frames of mono 16-bit samples onto Frames until the context is
// canceled or Stop is called.
type Capturer interface {
	Start(ctx context.Context) error
	Frames() <-chan []int16
	Stop() error
}

// CaptureError wraps failures of the audio device so callers can tell a
// missing or broken device apart from pipeline errors.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("audio device unavailable: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
