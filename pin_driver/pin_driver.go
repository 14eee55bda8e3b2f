package pin_driver

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	multierror "github.com/hashicorp/go-multierror"
	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/gpio"

	"voice-drive/drive_state"
)

var (
	ErrNotConfigured = errors.New("pins not configured")
	ErrInvalidState  = errors.New("opposing direction lines both high")
)

// Pins holds the header pin of each direction line.
type Pins struct {
	RightForward  string `mapstructure:"right_forward"`
	LeftForward   string `mapstructure:"left_forward"`
	RightBackward string `mapstructure:"right_backward"`
	LeftBackward  string `mapstructure:"left_backward"`
}

// DefaultPins is the board-numbered wiring of the reference robot.
var DefaultPins = Pins{
	RightForward:  "32",
	LeftForward:   "31",
	RightBackward: "33",
	LeftBackward:  "29",
}

func (p Pins) Validate() error {
	seen := make(map[string]bool, 4)

	for _, pin := range []string{p.RightForward, p.LeftForward, p.RightBackward, p.LeftBackward} {
		if pin == "" {
			return fmt.Errorf("pin not set")
		}

		if seen[pin] {
			return fmt.Errorf("pin %s used twice", pin)
		}

		seen[pin] = true
	}

	return nil
}

type driverImpl struct {
	connection    gobot.Connection
	rightForward  *gpio.DirectPinDriver
	leftForward   *gpio.DirectPinDriver
	rightBackward *gpio.DirectPinDriver
	leftBackward  *gpio.DirectPinDriver
	logger        *log.Logger

	configureOnce sync.Once
	configureErr  error
	configured    atomic.Bool
}

type Config struct {
	Connection gobot.Connection
	Pins       Pins
	Logger     *log.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Connection == nil {
		return nil, fmt.Errorf("connection is nil")
	}

	err := cfg.Pins.Validate()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &driverImpl{
		connection:    cfg.Connection,
		rightForward:  gpio.NewDirectPinDriver(cfg.Connection, cfg.Pins.RightForward),
		leftForward:   gpio.NewDirectPinDriver(cfg.Connection, cfg.Pins.LeftForward),
		rightBackward: gpio.NewDirectPinDriver(cfg.Connection, cfg.Pins.RightBackward),
		leftBackward:  gpio.NewDirectPinDriver(cfg.Connection, cfg.Pins.LeftBackward),
		logger:        logger,
	}, nil
}

func (d *driverImpl) drivers() []*gpio.DirectPinDriver {
	return []*gpio.DirectPinDriver{d.rightForward, d.leftForward, d.rightBackward, d.leftBackward}
}

func (d *driverImpl) Configure() error {
	d.configureOnce.Do(func() {
		err := d.connection.Connect()
		if err != nil {
			d.configureErr = fmt.Errorf("connecting %s: %w", d.connection.Name(), err)
			return
		}

		for _, pin := range d.drivers() {
			err = pin.Start()
			if err != nil {
				d.configureErr = fmt.Errorf("starting pin %s: %w", pin.Pin(), err)
				return
			}
		}

		d.configured.Store(true)

		d.configureErr = d.Write(drive_state.State{})
		if d.configureErr == nil {
			d.logger.Info("pins configured", "adaptor", d.connection.Name())
		}
	})

	return d.configureErr
}

// Write drives the lines going low before the lines going high, so a motor
// never sees both direction lines high between two states.
func (d *driverImpl) Write(state drive_state.State) error {
	if !d.configured.Load() {
		return ErrNotConfigured
	}

	if !state.Valid() {
		return ErrInvalidState
	}

	lines := []struct {
		pin *gpio.DirectPinDriver
		on  bool
	}{
		{d.rightForward, state.RightForward},
		{d.leftForward, state.LeftForward},
		{d.rightBackward, state.RightBackward},
		{d.leftBackward, state.LeftBackward},
	}

	written := make([]string, 0, len(lines))

	for _, high := range []bool{false, true} {
		for _, line := range lines {
			if line.on != high {
				continue
			}

			err := line.pin.DigitalWrite(level(high))
			if err != nil {
				// the lines in written already carry the new state
				d.logger.Debug("partial write", "written", written, "failed", line.pin.Pin())
				return fmt.Errorf("writing pin %s: %w", line.pin.Pin(), err)
			}

			written = append(written, line.pin.Pin())
		}
	}

	return nil
}

func (d *driverImpl) Close() error {
	var result error

	for _, pin := range d.drivers() {
		err := pin.Halt()
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	err := d.connection.Finalize()
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("finalizing %s: %w", d.connection.Name(), err))
	}

	return result
}

func level(high bool) byte {
	if high {
		return 1
	}

	return 0
}
