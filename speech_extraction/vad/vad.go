package vad

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// fluxJumpRatio is the relative spectral-flux increase that marks a speech
// onset, and the inverse drop that marks a return to quiet.
const fluxJumpRatio = 1.75

type vadImpl struct {
	frameSize    int
	prevSpectrum []float64
	lastFlux     float64
}

func New(frameSize int) *vadImpl {
	return &vadImpl{
		frameSize: frameSize,
	}
}

// Energy returns the RMS amplitude of a frame of 16-bit samples. Empty or
// degenerate frames report zero.
func Energy(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sum float64
	for _, s := range frame {
		f := float64(s)
		sum += f * f
	}

	rms := math.Sqrt(sum / float64(len(frame)))
	if math.IsNaN(rms) || math.IsInf(rms, 0) {
		return 0
	}

	return rms
}

// Flux returns the spectral flux of the frame: the summed positive change in
// magnitude across frequency bins since the previous frame. A sharp rise
// indicates an onset (speech starting) even when absolute energy is low.
func (v *vadImpl) Flux(frame []int16) float64 {
	input := make([]float64, len(frame))
	for i, s := range frame {
		input[i] = float64(s) / 32768.0
	}

	spectrum := fft.FFTReal(input)

	// only the first half of the spectrum carries information for real input
	half := len(spectrum) / 2
	if half == 0 {
		half = len(spectrum)
	}

	magnitudes := make([]float64, half)
	for i := 0; i < half; i++ {
		magnitudes[i] = cmplx.Abs(spectrum[i])
	}

	var flux float64
	if v.prevSpectrum != nil {
		for i := 0; i < half && i < len(v.prevSpectrum); i++ {
			diff := magnitudes[i] - v.prevSpectrum[i]
			if diff > 0 {
				flux += diff
			}
		}
	}

	v.prevSpectrum = magnitudes

	return flux
}

// IsSpeech classifies a frame as speech when its RMS energy exceeds the
// operating threshold, or when spectral flux jumps sharply relative to the
// rolling baseline.
func (v *vadImpl) IsSpeech(frame []int16, threshold float64) bool {
	energy := Energy(frame)
	flux := v.Flux(frame)

	speech := energy > threshold

	if v.lastFlux == 0 {
		v.lastFlux = flux
		return speech
	}

	if flux >= v.lastFlux*fluxJumpRatio {
		speech = true
	}

	v.lastFlux = flux

	return speech
}

// Reset clears onset tracking state for a fresh capture session.
func (v *vadImpl) Reset() {
	v.prevSpectrum = nil
	v.lastFlux = 0
}
