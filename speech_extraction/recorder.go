package speech_extraction

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-audio/audio"
	"github.com/spf13/afero"
	"github.com/zenwerk/go-wave"
)

// Recorder archives utterances as 16-bit mono wav files.
type Recorder struct {
	fileSys afero.Fs
	dir     string
	now     func() time.Time
}

type RecorderConfig struct {
	FileSys afero.Fs
	Dir     string
}

func NewRecorder(cfg *RecorderConfig) (*Recorder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	err := cfg.FileSys.MkdirAll(cfg.Dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating record dir: %w", err)
	}

	return &Recorder{
		fileSys: cfg.FileSys,
		dir:     cfg.Dir,
		now:     time.Now,
	}, nil
}

// Save writes buf to a new file in the record dir and returns its path.
func (r *Recorder) Save(buf *audio.IntBuffer) (string, error) {
	sampleRate := DefaultSampleRate
	if buf.Format != nil && buf.Format.SampleRate != 0 {
		sampleRate = buf.Format.SampleRate
	}

	waveFilename := filepath.Join(r.dir, "utterance"+strconv.FormatInt(r.now().UnixNano(), 10)+".wav")

	waveFile, err := r.fileSys.Create(waveFilename)
	if err != nil {
		return "", err
	}

	param := wave.WriterParam{
		Out:           waveFile,
		Channel:       1,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
	}

	waveWriter, err := wave.NewWriter(param)
	if err != nil {
		waveFile.Close()
		return "", err
	}

	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}

	_, err = waveWriter.WriteSample16(samples)
	if err != nil {
		waveWriter.Close()
		return "", err
	}

	// closing the writer writes the headers and closes the file
	err = waveWriter.Close()
	if err != nil {
		return "", err
	}

	return waveFilename, nil
}
