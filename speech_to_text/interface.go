package speech_to_text

import (
	"context"
	"fmt"
	"io"

	"voice-assistant/speech_extraction"
)

// Interface turns captured utterances into text. Implementations run fully
// on the local machine; audio never leaves the process.
type Interface interface {
	Transcribe(ctx context.Context, utterance *speech_extraction.Utterance) (string, error)
}

// WAVTranscriber is implemented by engines that can also read a spilled WAV
// stream directly.
type WAVTranscriber interface {
	TranscribeWAV(ctx context.Context, r io.ReadSeeker) (string, error)
}

// TranscriptionError wraps engine failures so callers can tell a failed
// transcription apart from pipeline errors.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
