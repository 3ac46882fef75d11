package chime

import "time"

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// The cue table. Frequencies are plain piano notes around middle C so the
// cues stay gentle on small speakers.
var (
	// Startup rises C4 E4 G4 C5 once the process is ready.
	Startup = Cue{
		Name:  "startup",
		Tones: []Tone{{262, ms(80)}, {330, ms(80)}, {392, ms(90)}, {523, ms(120)}},
		Pause: ms(40),
	}

	// Ready is a single E4 when wake-word listening begins.
	Ready = Cue{
		Name:  "ready",
		Tones: []Tone{{330, ms(80)}},
	}

	// Listening rises C4 E4 when capture opens.
	Listening = Cue{
		Name:  "listening",
		Tones: []Tone{{262, ms(60)}, {330, ms(60)}},
		Pause: ms(20),
	}

	// ConversationStart greets with a C4 E4 G4 triad.
	ConversationStart = Cue{
		Name:  "conversation-start",
		Tones: []Tone{{262, ms(70)}, {330, ms(70)}, {392, ms(90)}},
		Pause: ms(30),
	}

	// ConversationListening is a single brief D4 between turns.
	ConversationListening = Cue{
		Name:  "conversation-listening",
		Tones: []Tone{{294, ms(50)}},
	}

	// Speaking rises E4 G4 just before a reply is voiced.
	Speaking = Cue{
		Name:  "speaking",
		Tones: []Tone{{330, ms(40)}, {392, ms(50)}},
		Pause: ms(20),
	}

	// Thinking descends F4 E4 D4 while a turn is processed.
	Thinking = Cue{
		Name:  "thinking",
		Tones: []Tone{{349, ms(60)}, {330, ms(60)}, {294, ms(60)}},
		Pause: ms(20),
	}

	// ConversationEnd fades out G4 E4 C4 when a session closes.
	ConversationEnd = Cue{
		Name:  "conversation-end",
		Tones: []Tone{{392, ms(80)}, {330, ms(90)}, {262, ms(120)}},
		Pause: ms(40),
	}
)
