package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"voice-drive/command_interpreter"
	"voice-drive/speech_extraction"
	"voice-drive/speech_to_text"
)

type listenerImpl struct {
	source      speech_extraction.Source
	sttEngine   speech_to_text.Interface
	interpreter command_interpreter.Interface
	dispatcher  Submitter
	recorder    Recorder
	calibration time.Duration
	state       atomic.Int32
	logger      *log.Logger
}

type Config struct {
	Source      speech_extraction.Source
	STTEngine   speech_to_text.Interface
	Interpreter command_interpreter.Interface
	Dispatcher  Submitter
	// Recorder is optional; when set every utterance is archived.
	Recorder Recorder
	// Calibration is how long to sample ambient noise before listening.
	Calibration time.Duration
	Logger      *log.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Source == nil {
		return nil, fmt.Errorf("source is nil")
	}

	if cfg.STTEngine == nil {
		return nil, fmt.Errorf("sttEngine is nil")
	}

	if cfg.Interpreter == nil {
		return nil, fmt.Errorf("interpreter is nil")
	}

	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &listenerImpl{
		source:      cfg.Source,
		sttEngine:   cfg.STTEngine,
		interpreter: cfg.Interpreter,
		dispatcher:  cfg.Dispatcher,
		recorder:    cfg.Recorder,
		calibration: cfg.Calibration,
		logger:      logger,
	}, nil
}

func (l *listenerImpl) State() LoopState {
	return LoopState(l.state.Load())
}

func (l *listenerImpl) Run(ctx context.Context) error {
	if l.calibration > 0 {
		err := l.source.Calibrate(ctx, l.calibration)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("calibrating: %w", err)
		}
	}

	l.logger.Info("starting to listen")

	for {
		l.state.Store(int32(Listening))

		if ctx.Err() != nil {
			return nil
		}

		waveBuffer, err := l.source.Capture(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, io.EOF):
				l.logger.Info("audio source exhausted")
				return nil
			case errors.Is(err, speech_extraction.ErrListenTimeout):
				l.logger.Warn("no speech heard", "err", err)
				continue
			default:
				return fmt.Errorf("capturing audio: %w", err)
			}
		}

		if l.recorder != nil {
			name, err := l.recorder.Save(waveBuffer)
			if err != nil {
				l.logger.Warn("error recording utterance", "err", err)
			} else {
				l.logger.Debug("recorded utterance", "file", name)
			}
		}

		text, err := l.sttEngine.Transcribe(ctx, waveBuffer)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			// listening again is the only retry
			if speech_to_text.Recoverable(err) {
				l.logger.Warn("could not transcribe utterance", "err", err)
			} else {
				l.logger.Error("transcription failed", "err", err)
			}
			continue
		}

		l.dispatch(text)
	}
}

func (l *listenerImpl) dispatch(text string) {
	l.state.Store(int32(Dispatching))

	cmd, ok := l.interpreter.Interpret(text)
	if !ok {
		l.logger.Debug("no command heard", "text", text)
		return
	}

	l.logger.Info("heard command", "command", cmd, "text", text)

	l.dispatcher.Submit(cmd)
}
