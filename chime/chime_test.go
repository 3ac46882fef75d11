package chime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderToneMatchesDuration(t *testing.T) {
	out := renderTone(Tone{Frequency: 440, Duration: 100 * time.Millisecond})

	assert.Len(t, out, sampleRate/10)
	assert.Zero(t, out[0], "the first sample is faded to silence")

	last := out[len(out)-1]
	if last < 0 {
		last = -last
	}
	assert.Less(t, float64(last), amplitude*32767/8, "the tail is tapered")

	peak := int16(0)
	for _, s := range out {
		if s > peak {
			peak = s
		}
	}
	assert.Greater(t, peak, int16(0))
	assert.LessOrEqual(t, float64(peak), amplitude*32767+1)
}

func TestRenderInsertsPausesBetweenNotes(t *testing.T) {
	cue := Cue{
		Tones: []Tone{{262, 10 * time.Millisecond}, {330, 10 * time.Millisecond}},
		Pause: 5 * time.Millisecond,
	}

	out := render(cue)

	toneLen := int(float64(sampleRate) * 0.010)
	pauseLen := int(float64(sampleRate) * 0.005)
	require.Len(t, out, 2*toneLen+pauseLen)

	for i := toneLen; i < toneLen+pauseLen; i++ {
		assert.Zero(t, out[i], "pause samples must be silent")
	}
}

func TestCueTableIsWellFormed(t *testing.T) {
	cues := []Cue{
		Startup, Ready, Listening, ConversationStart,
		ConversationListening, Speaking, Thinking, ConversationEnd,
	}

	seen := map[string]struct{}{}
	for _, cue := range cues {
		require.NotEmpty(t, cue.Name)
		require.NotEmpty(t, cue.Tones, "cue %q has no tones", cue.Name)

		_, dup := seen[cue.Name]
		require.False(t, dup, "cue name %q reused", cue.Name)
		seen[cue.Name] = struct{}{}

		for _, tone := range cue.Tones {
			assert.Greater(t, tone.Frequency, 0.0)
			assert.Greater(t, tone.Duration, time.Duration(0))
		}
	}
}

func TestNoopIgnoresCues(t *testing.T) {
	p := Noop()
	p.Play(Startup)
	require.NoError(t, p.Close())
}
