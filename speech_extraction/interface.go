package speech_extraction

import "context"

// Interface extracts bounded utterances from a live capture session. One
// extractor serves one capture session; restarting requires a fresh one.
type Interface interface {
	// Calibrate samples ambient audio for the configured window and derives
	// the operating silence threshold from it.
	Calibrate(ctx context.Context) (float64, error)

	// Run consumes capture frames until the context ends, pushing completed
	// utterances onto the bounded queue returned by Utterances.
	Run(ctx context.Context) error

	Utterances() <-chan *Utterance
}
