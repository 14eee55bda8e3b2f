package drive_api

import (
	"context"

	"voice-drive/status_server"
)

type DriveAPI interface {
	// SendCommand posts text to a running controller and returns the name of
	// the command it was interpreted as.
	SendCommand(ctx context.Context, text string) (string, error)
	State(ctx context.Context) (*status_server.StateResponse, error)
}
