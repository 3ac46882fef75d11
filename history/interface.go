package history

import "time"

// Role marks which side of the conversation produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance-and-response half of the conversation. Turns are
// immutable once appended.
type Turn struct {
	Role          Role      `json:"role"`
	Text          string    `json:"text"`
	Timestamp     time.Time `json:"timestamp"`
	TokenEstimate int       `json:"token_estimate"`
}

// Interface is the bounded, encrypted conversation store. One store serves
// one session at a time; Clear starts the next session fresh.
type Interface interface {
	// Append adds a turn and trims oldest turns to stay within the
	// configured count and token bounds.
	Append(turn Turn)

	// Snapshot returns a copy of the current turns, oldest first.
	Snapshot() []Turn

	// Save writes the encrypted history file.
	Save() error

	// Load replaces the in-memory turns with the decrypted file content.
	// Missing, corrupt, or tampered files load as empty.
	Load() error

	// Clear drops all in-memory turns.
	Clear()

	// Close zeroes the encryption key. The store is unusable afterwards.
	Close() error
}
