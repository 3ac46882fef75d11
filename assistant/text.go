package assistant

import (
	"strings"
	"unicode"
)

// normalizeText lowercases, strips everything but letters, digits, and
// spaces, and collapses whitespace runs. Matching happens on normalized text
// so transcription punctuation cannot hide a phrase.
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// containsPhrase reports whether the normalized phrase occurs in the
// normalized text.
func containsPhrase(normalizedText, phrase string) bool {
	phrase = normalizeText(phrase)
	if phrase == "" {
		return false
	}

	return strings.Contains(normalizedText, phrase)
}

// goodbyeVariants are matched alongside the configured goodbye word.
var goodbyeVariants = []string{
	"goodbye",
	"bye steve",
	"see you later steve",
	"talk to you later steve",
	"end conversation",
}

func isGoodbye(normalizedText, goodbyeWord string) bool {
	if containsPhrase(normalizedText, goodbyeWord) {
		return true
	}

	for _, phrase := range goodbyeVariants {
		if containsPhrase(normalizedText, phrase) {
			return true
		}
	}

	return false
}

// afterWake returns any command spoken in the same breath as the wake
// phrase. Trailing fragments of a few characters are transcription noise,
// not commands.
func afterWake(normalizedText, wakeWord string) string {
	wake := normalizeText(wakeWord)

	idx := strings.Index(normalizedText, wake)
	if idx < 0 {
		return ""
	}

	command := strings.TrimSpace(normalizedText[idx+len(wake):])
	if len(command) <= 3 {
		return ""
	}

	return command
}
