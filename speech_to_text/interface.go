package speech_to_text

import (
	"context"

	"github.com/go-audio/audio"
)

type Interface interface {
	// Transcribe returns the text spoken in buf. Failures wrap one of
	// ErrUnintelligible, ErrServiceFailure or ErrTimeout.
	Transcribe(ctx context.Context, buf *audio.IntBuffer) (string, error)
}
