package vad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sineFrame(size int, amplitude float64) []int16 {
	frame := make([]int16, size)
	for i := range frame {
		frame[i] = int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return frame
}

func TestEnergy(t *testing.T) {
	assert.Equal(t, 0.0, Energy(nil))
	assert.Equal(t, 0.0, Energy([]int16{}))
	assert.Equal(t, 0.0, Energy(make([]int16, 512)))

	loud := Energy(sineFrame(512, 8000))
	quiet := Energy(sineFrame(512, 200))

	assert.Greater(t, loud, quiet)
	assert.Greater(t, quiet, 0.0)
}

func TestFluxRisesOnOnset(t *testing.T) {
	v := New(512)

	silence := make([]int16, 512)

	// settle the baseline on silence
	v.Flux(silence)
	base := v.Flux(silence)

	onset := v.Flux(sineFrame(512, 8000))

	assert.Greater(t, onset, base)
}

func TestIsSpeechEnergyThreshold(t *testing.T) {
	v := New(512)

	silence := make([]int16, 512)
	speech := sineFrame(512, 8000)

	assert.False(t, v.IsSpeech(silence, 150))
	assert.True(t, v.IsSpeech(speech, 150))
}

func TestResetClearsBaseline(t *testing.T) {
	v := New(512)

	v.Flux(sineFrame(512, 8000))
	v.Reset()

	assert.Nil(t, v.prevSpectrum)
	assert.Equal(t, 0.0, v.lastFlux)
}
