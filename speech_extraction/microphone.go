package speech_extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"
	multierror "github.com/hashicorp/go-multierror"
)

type microphoneImpl struct {
	detector *Detector
	in       []int16
	stream   *portaudio.Stream
	logger   *log.Logger
}

type MicrophoneConfig struct {
	Detector DetectorConfig
	Logger   *log.Logger
}

// NewMicrophone opens the default input device.
func NewMicrophone(cfg *MicrophoneConfig) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	detector := NewDetector(cfg.Detector)

	err := portaudio.Initialize()
	if err != nil {
		return nil, fmt.Errorf("initializing audio: %w", err)
	}

	in := make([]int16, detector.cfg.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(detector.cfg.SampleRate), len(in), in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("opening input stream: %w", err)
	}

	return &microphoneImpl{
		detector: detector,
		in:       in,
		stream:   stream,
		logger:   logger,
	}, nil
}

func (m *microphoneImpl) Calibrate(ctx context.Context, duration time.Duration) error {
	err := m.stream.Start()
	if err != nil {
		return fmt.Errorf("starting input stream: %w", err)
	}

	defer m.stop()

	var heard time.Duration
	for heard < duration {
		if err = ctx.Err(); err != nil {
			return err
		}

		err = m.stream.Read()
		if err != nil {
			return fmt.Errorf("reading input stream: %w", err)
		}

		heard += m.detector.CalibrateFrame(m.in)
	}

	threshold := m.detector.FinishCalibration()

	m.logger.Info("calibrated for ambient noise", "threshold", threshold, "duration", duration)

	return nil
}

func (m *microphoneImpl) Capture(ctx context.Context) (*audio.IntBuffer, error) {
	m.detector.Reset()

	err := m.stream.Start()
	if err != nil {
		return nil, fmt.Errorf("starting input stream: %w", err)
	}

	defer m.stop()

	for {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		err = m.stream.Read()
		if errors.Is(err, portaudio.InputOverflowed) {
			m.logger.Debug("input overflowed, dropping frame")
			continue
		} else if err != nil {
			return nil, fmt.Errorf("reading input stream: %w", err)
		}

		done, err := m.detector.Feed(m.in)
		if err != nil {
			return nil, err
		}

		if done {
			utterance := m.detector.Utterance()

			m.logger.Debug("captured utterance", "frames", utterance.NumFrames())

			return utterance, nil
		}
	}
}

func (m *microphoneImpl) stop() {
	err := m.stream.Stop()
	if err != nil {
		m.logger.Warn("error while stopping input stream", "err", err)
	}
}

func (m *microphoneImpl) Close() error {
	var result error

	err := m.stream.Close()
	if err != nil {
		result = multierror.Append(result, err)
	}

	err = portaudio.Terminate()
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("freeing audio: %w", err))
	}

	return result
}
