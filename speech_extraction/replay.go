package speech_extraction

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// replayImpl plays back the wav files of a directory, one per Capture.
type replayImpl struct {
	fileSys afero.Fs
	files   []string
	next    int
	logger  *log.Logger
}

type ReplayConfig struct {
	FileSys afero.Fs
	Dir     string
	Logger  *log.Logger
}

func NewReplay(cfg *ReplayConfig) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	entries, err := afero.ReadDir(cfg.FileSys, cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading replay dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}

		files = append(files, filepath.Join(cfg.Dir, entry.Name()))
	}

	sort.Strings(files)

	logger.Info("replaying recorded utterances", "dir", cfg.Dir, "files", len(files))

	return &replayImpl{
		fileSys: cfg.FileSys,
		files:   files,
		logger:  logger,
	}, nil
}

func (r *replayImpl) Calibrate(ctx context.Context, duration time.Duration) error {
	return nil
}

// Capture returns io.EOF once every file has been played.
func (r *replayImpl) Capture(ctx context.Context) (*audio.IntBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.next >= len(r.files) {
		return nil, io.EOF
	}

	name := r.files[r.next]
	r.next++

	r.logger.Debug("replaying", "file", name)

	return decodeWave(r.fileSys, name)
}

func (r *replayImpl) Close() error {
	return nil
}

func decodeWave(fileSys afero.Fs, name string) (*audio.IntBuffer, error) {
	f, err := fileSys.Open(name)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", name)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	return buf, nil
}
