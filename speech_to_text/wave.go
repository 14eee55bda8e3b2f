package speech_to_text

import (
	"bytes"

	"github.com/go-audio/audio"
	"github.com/zenwerk/go-wave"
)

const defaultSampleRate = 16000

type bufferCloser struct {
	*bytes.Buffer
}

func (bufferCloser) Close() error { return nil }

// encodeWave renders buf as a 16-bit mono wav file in memory.
func encodeWave(buf *audio.IntBuffer) ([]byte, error) {
	sampleRate := defaultSampleRate
	if buf.Format != nil && buf.Format.SampleRate != 0 {
		sampleRate = buf.Format.SampleRate
	}

	out := bufferCloser{&bytes.Buffer{}}

	waveWriter, err := wave.NewWriter(wave.WriterParam{
		Out:           out,
		Channel:       1,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
	})
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}

	_, err = waveWriter.WriteSample16(samples)
	if err != nil {
		return nil, err
	}

	err = waveWriter.Close()
	if err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}
