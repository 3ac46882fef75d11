package sanitizer

// Action is the outcome class for a sanitization pass.
type Action string

const (
	// ActionPass means the text went through unchanged apart from truncation.
	ActionPass Action = "pass"

	// ActionFilter means low-severity matches were cut and replaced.
	ActionFilter Action = "filter"

	// ActionReject means the input contained a high-severity pattern and must
	// not reach the language model.
	ActionReject Action = "reject"
)

// Verdict is the result of sanitizing one piece of transcribed text.
type Verdict struct {
	Original        string
	Cleaned         string
	MatchedPatterns []string
	Action          Action
	Truncated       bool
}

// Rejected reports whether the input may not be forwarded.
func (v Verdict) Rejected() bool {
	return v.Action == ActionReject
}

// Interface screens transcribed text before it is sent to the language model.
type Interface interface {
	Sanitize(text string) Verdict
}
