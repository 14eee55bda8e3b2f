package voice_detection

import (
	"math"
	"testing"
)

func tone(n, sampleRate int, hz, amplitude float64) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		frame[i] = int16(amplitude * math.Sin(2*math.Pi*hz*float64(i)/float64(sampleRate)))
	}

	return frame
}

func TestEnergy(t *testing.T) {
	vad := New(1024, 16000)

	silence := vad.Energy(make([]int16, 1024))
	if silence != 0 {
		t.Errorf("silence energy = %f, want 0", silence)
	}

	voice := vad.Energy(tone(1024, 16000, 1000, 8000))
	if voice < 1 {
		t.Errorf("1 kHz tone energy = %f, expected well above 1", voice)
	}

	// outside the voice band
	rumble := vad.Energy(tone(1024, 16000, 60, 8000))
	if rumble >= voice/4 {
		t.Errorf("60 Hz tone energy %f too close to voice energy %f", rumble, voice)
	}
}

func TestShortFrameIsPadded(t *testing.T) {
	vad := New(1024, 16000)

	if energy := vad.Energy(tone(100, 16000, 1000, 8000)); math.IsNaN(energy) {
		t.Errorf("energy of short frame is NaN")
	}
}
