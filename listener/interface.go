package listener

import (
	"context"

	"github.com/go-audio/audio"

	"voice-drive/drive_state"
)

type LoopState int32

const (
	// Listening covers capture and transcription.
	Listening LoopState = iota
	// Dispatching is the short step between a transcript and the next capture.
	Dispatching
)

func (s LoopState) String() string {
	if s == Dispatching {
		return "dispatching"
	}

	return "listening"
}

type Interface interface {
	// Run listens until ctx is done, the source runs dry or capture fails.
	Run(ctx context.Context) error
	State() LoopState
}

type Submitter interface {
	Submit(cmd drive_state.Command)
}

type Recorder interface {
	Save(buf *audio.IntBuffer) (string, error)
}
