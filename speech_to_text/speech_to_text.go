package speech_to_text

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/audio"
)

// errEngineBusy is returned while an abandoned run still owns the model.
var errEngineBusy = errors.New("whisper engine busy")

type sttImpl struct {
	model    whisper.Model
	language string
	timeout  time.Duration
	logger   *log.Logger

	// every context of a model shares one C whisper_context, so only one
	// run may be in flight at a time
	busy    chan struct{}
	process func(data []float32) ([]whisper.Segment, error)
}

type Config struct {
	Model    whisper.Model
	Language string
	// Timeout bounds one transcription; zero means no limit.
	Timeout time.Duration
	Logger  *log.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	stt := &sttImpl{
		model:    cfg.Model,
		language: cfg.Language,
		timeout:  cfg.Timeout,
		logger:   logger,
		busy:     make(chan struct{}, 1),
	}
	stt.process = stt.runWhisper

	return stt, nil
}

type processResult struct {
	segments []whisper.Segment
	err      error
}

func (stt *sttImpl) Transcribe(ctx context.Context, wavBuffer *audio.IntBuffer) (string, error) {
	if stt.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stt.timeout)
		defer cancel()
	}

	if wavBuffer.NumFrames() == 0 {
		return "", ErrUnintelligible
	}

	data := wavBuffer.AsFloat32Buffer().Data

	// whisper cannot be interrupted, so an abandoned run finishes in the
	// background and its result is dropped
	select {
	case stt.busy <- struct{}{}:
	default:
		return "", Classify(errEngineBusy)
	}

	done := make(chan processResult, 1)
	go func() {
		segments, err := stt.process(data)
		<-stt.busy
		done <- processResult{segments, err}
	}()

	var result processResult
	select {
	case <-ctx.Done():
		return "", Classify(ctx.Err())
	case result = <-done:
	}

	if result.err != nil {
		return "", Classify(result.err)
	}

	texts := make([]string, 0, len(result.segments))
	for _, segment := range result.segments {
		stt.logger.Debug("segment",
			"start", segment.Start.Truncate(time.Millisecond),
			"end", segment.End.Truncate(time.Millisecond),
			"text", segment.Text)

		texts = append(texts, segment.Text)
	}

	text := joinSegments(texts)
	if text == "" {
		return "", ErrUnintelligible
	}

	return text, nil
}

func (stt *sttImpl) runWhisper(data []float32) ([]whisper.Segment, error) {
	// Create processing context
	context, err := stt.model.NewContext()
	if err != nil {
		return nil, err
	}

	if stt.language != "" {
		err = context.SetLanguage(stt.language)
		if err != nil {
			return nil, err
		}
	}

	var cb whisper.SegmentCallback

	err = context.Process(data, cb)
	if err != nil {
		return nil, err
	}

	segments := make([]whisper.Segment, 0)

	for {
		segment, err := context.NextSegment()
		if err == io.EOF {
			return segments, nil
		} else if err != nil {
			return nil, err
		}

		segments = append(segments, segment)
	}
}

// joinSegments drops non-speech annotations such as "[BLANK_AUDIO]" or
// "(wind blowing)" and repeated segments, and joins what is left.
func joinSegments(texts []string) string {
	seenText := make(map[string]bool)

	kept := make([]string, 0, len(texts))

	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if text[0] == '(' || text[0] == '[' || text[len(text)-1] == ')' || text[len(text)-1] == ']' {
			continue
		}

		if seenText[text] {
			continue
		}

		seenText[text] = true

		kept = append(kept, text)
	}

	return strings.Join(kept, " ")
}
