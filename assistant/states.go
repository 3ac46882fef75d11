package assistant

// State is the conversation control state. Transitions are driven only by
// utterances, timers, and shutdown.
type State string

const (
	// StateIdle means no capture session is running.
	StateIdle State = "idle"

	// StateListening means audio is scanned for the wake phrase only.
	StateListening State = "listening"

	// StateActive means a session is open and utterances become turns.
	StateActive State = "active"

	// StateProcessing means a turn is in the sanitize/guard/model pipeline.
	StateProcessing State = "processing"

	// StateSpeaking means a reply is being voiced.
	StateSpeaking State = "speaking"
)
