package sanitizer

import "regexp"

type severity int

const (
	// sevLow matches are cut out of the text and replaced with a marker
	sevLow severity = iota

	// sevHigh matches reject the whole input
	sevHigh
)

type pattern struct {
	id       string
	severity severity
	re       *regexp.Regexp
}

// injectionPatterns is the ordered detection table. IDs are stable so security
// logs stay greppable across releases; the text that matched is never logged.
var injectionPatterns = []pattern{
	{
		id:       "ignore-previous",
		severity: sevHigh,
		re:       regexp.MustCompile(`(?i)ignore\s+(all\s+|any\s+)?(previous|prior|above)\s+(instructions?|prompts?|messages?|rules?)`),
	},
	{
		id:       "disregard-instructions",
		severity: sevHigh,
		re:       regexp.MustCompile(`(?i)disregard\s+(all\s+|any\s+)?(previous|prior|above|your)\s+(instructions?|prompts?|rules?)`),
	},
	{
		id:       "forget-everything",
		severity: sevHigh,
		re:       regexp.MustCompile(`(?i)forget\s+(everything|all)\s+(you|above|before|prior)`),
	},
	{
		id:       "role-marker",
		severity: sevHigh,
		re:       regexp.MustCompile(`(?im)(^|\n)\s*(system|assistant)\s*:`),
	},
	{
		id:       "jailbreak",
		severity: sevHigh,
		re:       regexp.MustCompile(`(?i)\bjail\s*break\b`),
	},
	{
		id:       "prompt-injection",
		severity: sevHigh,
		re:       regexp.MustCompile(`(?i)prompt\s+injection`),
	},
	{
		id:       "reveal-instructions",
		severity: sevHigh,
		re:       regexp.MustCompile(`(?i)(tell|show|reveal|repeat|print)\s+(me\s+)?(your|the)\s+(system\s+)?(prompt|instructions)`),
	},
	{
		id:       "pretend-persona",
		severity: sevLow,
		re:       regexp.MustCompile(`(?i)\bpretend\s+(you\s+are|you're|to\s+be)\b`),
	},
	{
		id:       "act-as-if",
		severity: sevLow,
		re:       regexp.MustCompile(`(?i)\bact\s+as\s+(if|though|an?)\b`),
	},
	{
		id:       "override",
		severity: sevLow,
		re:       regexp.MustCompile(`(?i)\boverride\b`),
	},
	{
		id:       "markup-tag",
		severity: sevLow,
		re:       regexp.MustCompile(`</?[a-zA-Z][^<>]*>`),
	},
}
