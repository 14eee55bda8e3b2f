package voice_detection

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	voiceLowHz  = 300
	voiceHighHz = 3400
)

// VAD measures how much voice-band energy a frame of samples carries.
type VAD struct {
	frameSize  int
	sampleRate int
	window     []float64
}

func New(frameSize, sampleRate int) *VAD {
	return &VAD{
		frameSize:  frameSize,
		sampleRate: sampleRate,
		window:     window.Hann(frameSize),
	}
}

// spectrum returns the normalized magnitudes of the voice-band bins.
func (v *VAD) spectrum(frame []int16) []float64 {
	samples := make([]float64, v.frameSize)
	for i := 0; i < v.frameSize && i < len(frame); i++ {
		samples[i] = float64(frame[i]) * v.window[i]
	}

	coeffs := fft.FFTReal(samples)

	binHz := float64(v.sampleRate) / float64(v.frameSize)
	low := int(voiceLowHz / binHz)
	high := int(voiceHighHz / binHz)
	if high > v.frameSize/2 {
		high = v.frameSize / 2
	}

	magnitudes := make([]float64, 0, high-low+1)
	for k := low; k <= high; k++ {
		magnitudes = append(magnitudes, cmplx.Abs(coeffs[k])/float64(v.frameSize))
	}

	return magnitudes
}

// Energy is the mean voice-band magnitude of frame.
func (v *VAD) Energy(frame []int16) float64 {
	magnitudes := v.spectrum(frame)
	if len(magnitudes) == 0 {
		return 0
	}

	var sum float64
	for _, m := range magnitudes {
		sum += m
	}

	return sum / float64(len(magnitudes))
}
