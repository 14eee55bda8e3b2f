package dispatcher

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	multierror "github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"voice-drive/drive_state"
)

const (
	DefaultWorkers = 1
	MaxWorkers     = 2
)

type dispatcherImpl struct {
	applier Applier
	workers int
	pending chan drive_state.Command
	logger  *log.Logger
}

type Config struct {
	Applier Applier
	Workers int
	Logger  *log.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Applier == nil {
		return nil, fmt.Errorf("applier is nil")
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = DefaultWorkers
	}

	if workers < 1 || workers > MaxWorkers {
		return nil, fmt.Errorf("workers must be between 1 and %d, got %d", MaxWorkers, workers)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &dispatcherImpl{
		applier: cfg.Applier,
		workers: workers,
		pending: make(chan drive_state.Command, 1),
		logger:  logger,
	}, nil
}

func (d *dispatcherImpl) Submit(cmd drive_state.Command) {
	if !cmd.Valid() {
		panic(fmt.Sprintf("dispatcher: unrecognized command %d", int(cmd)))
	}

	for {
		select {
		case d.pending <- cmd:
			return
		default:
		}

		select {
		case dropped := <-d.pending:
			d.logger.Debug("superseded", "dropped", dropped, "command", cmd)
		default:
		}
	}
}

func (d *dispatcherImpl) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			return d.work(gctx)
		})
	}

	var result error

	err := g.Wait()
	if err != nil {
		result = multierror.Append(result, err)
	}

	d.logger.Info("stopping motors")

	err = d.applier.Apply(drive_state.Stop)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("final stop: %w", err))
	}

	return result
}

func (d *dispatcherImpl) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-d.pending:
			d.logger.Info("dispatching", "command", cmd)

			err := d.applier.Apply(cmd)
			if err != nil {
				return fmt.Errorf("hardware write failed: %w", err)
			}
		}
	}
}
