package drive_state

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

type machineImpl struct {
	mu      sync.Mutex
	writer  Writer
	current State
	logger  *log.Logger
}

type Config struct {
	Writer Writer
	Logger *log.Logger
}

// New returns a machine resting in Stop. Nothing is written until the first
// Apply.
func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Writer == nil {
		return nil, fmt.Errorf("writer is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &machineImpl{
		writer: cfg.Writer,
		logger: logger,
	}, nil
}

// Apply writes the table row for cmd and makes it the canonical state. The
// canonical state only changes after a successful write.
func (m *machineImpl) Apply(cmd Command) error {
	next, ok := StateFor(cmd)
	if !ok {
		panic(fmt.Sprintf("drive_state: unrecognized command %d", int(cmd)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.writer.Write(next)
	if err != nil {
		// some lines may already have moved; the caller treats this as fatal
		// and the final Stop rewrites all of them
		return fmt.Errorf("writing %s state: %w", cmd, err)
	}

	m.current = next

	m.logger.Debug("applied", "command", cmd)

	return nil
}

func (m *machineImpl) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}
