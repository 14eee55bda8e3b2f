package speech_extraction

import (
	"context"
	"errors"
	"time"

	"github.com/go-audio/audio"
)

// ErrListenTimeout is returned by Capture when no speech started within the
// configured listen timeout.
var ErrListenTimeout = errors.New("listen timed out waiting for speech")

// Source yields one utterance per Capture call.
type Source interface {
	// Calibrate measures the ambient noise for duration and adjusts the
	// speech threshold to it.
	Calibrate(ctx context.Context, duration time.Duration) error
	Capture(ctx context.Context) (*audio.IntBuffer, error)
	Close() error
}
