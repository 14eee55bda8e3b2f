package dispatcher

import (
	"context"

	"voice-drive/drive_state"
)

type Interface interface {
	// Submit hands cmd to the workers without blocking. A command still
	// waiting to be picked up is replaced.
	Submit(cmd drive_state.Command)
	// Run applies submitted commands until ctx is done or a write fails,
	// then drives the robot to Stop.
	Run(ctx context.Context) error
}

// Applier is the part of the drive state machine the dispatcher needs.
type Applier interface {
	Apply(cmd drive_state.Command) error
}
