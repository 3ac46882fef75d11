package sanitizer

import (
	"fmt"
	"regexp"

	"voice-assistant/logging"
)

// filterMarker replaces low-severity matches. It deliberately matches none of
// the detection patterns, so sanitized text re-scans clean.
const filterMarker = "[filtered]"

// maxLengthID is the pattern id recorded when the length guard cuts the
// input.
const maxLengthID = "max-length"

// maxPasses bounds the fixed-point loop. Truncating at a word boundary can
// expose a match the full text did not have, so passes repeat until the text
// stops changing. Input that never settles is rejected.
const maxPasses = 5

type sanitizerImpl struct {
	maxInputChars int
	patterns      []pattern
}

// CustomPattern extends the built-in detection table from configuration or
// tests.
type CustomPattern struct {
	ID      string
	Pattern string
	Reject  bool
}

type Config struct {
	MaxInputChars  int
	CustomPatterns []CustomPattern
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.MaxInputChars <= 0 {
		return nil, fmt.Errorf("max input chars must be positive")
	}

	patterns := append([]pattern(nil), injectionPatterns...)

	for _, custom := range cfg.CustomPatterns {
		re, err := regexp.Compile(custom.Pattern)
		if err != nil {
			return nil, fmt.Errorf("custom pattern %q: %w", custom.ID, err)
		}

		sev := sevLow
		if custom.Reject {
			sev = sevHigh
		}

		patterns = append(patterns, pattern{id: custom.ID, severity: sev, re: re})
	}

	return &sanitizerImpl{
		maxInputChars: cfg.MaxInputChars,
		patterns:      patterns,
	}, nil
}

// Sanitize screens one piece of transcribed text. The output is a fixed
// point: sanitizing it again returns it unchanged.
func (s *sanitizerImpl) Sanitize(text string) Verdict {
	verdict := Verdict{
		Original: text,
		Action:   ActionPass,
	}

	seen := make(map[string]struct{})
	record := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}

		seen[id] = struct{}{}
		verdict.MatchedPatterns = append(verdict.MatchedPatterns, id)
	}

	cleaned := text

	for pass := 0; pass < maxPasses; pass++ {
		rejected := false
		for _, p := range s.patterns {
			if p.severity == sevHigh && p.re.MatchString(cleaned) {
				record(p.id)
				rejected = true
			}
		}

		if rejected {
			verdict.Action = ActionReject

			logging.SecurityEvent("input-rejected",
				"pattern_ids", verdict.MatchedPatterns,
				"input_chars", len([]rune(text)))

			return verdict
		}

		next := cleaned
		for _, p := range s.patterns {
			if p.severity != sevLow {
				continue
			}

			if !p.re.MatchString(next) {
				continue
			}

			next = p.re.ReplaceAllString(next, filterMarker)
			record(p.id)
		}

		var truncated bool
		next, truncated = truncate(next, s.maxInputChars)
		verdict.Truncated = verdict.Truncated || truncated

		if next == cleaned {
			break
		}

		cleaned = next

		if pass == maxPasses-1 {
			// never settled; refuse rather than forward something unvetted
			verdict.Action = ActionReject
			record("unstable-input")

			logging.SecurityEvent("input-rejected",
				"pattern_ids", verdict.MatchedPatterns,
				"input_chars", len([]rune(text)))

			return verdict
		}
	}

	verdict.Cleaned = cleaned

	// excessive length is a low-severity rule like any other: the output
	// differs from the input, so the verdict cannot be a pass
	if verdict.Truncated {
		record(maxLengthID)

		logging.SecurityEvent("input-truncated",
			"max_chars", s.maxInputChars,
			"input_chars", len([]rune(text)))
	}

	if len(verdict.MatchedPatterns) > 0 {
		verdict.Action = ActionFilter

		logging.SecurityEvent("input-filtered",
			"pattern_ids", verdict.MatchedPatterns,
			"input_chars", len([]rune(text)))
	}

	return verdict
}

// truncate caps the text at max runes, marking the cut with an ellipsis.
// Re-truncating already-truncated text yields the same result.
func truncate(text string, max int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= max {
		return text, false
	}

	return string(runes[:max]) + "...", true
}
