package status_server

import (
	"context"
	"net/http"

	"voice-drive/drive_state"
)

type Interface interface {
	Handler() http.Handler
	// Serve listens on addr until ctx is done, then shuts down gracefully.
	Serve(ctx context.Context, addr string) error
}

type StateReader interface {
	Current() drive_state.State
}

type Submitter interface {
	Submit(cmd drive_state.Command)
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	drive_state.State
	Command string `json:"command"`
}

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	Text string `json:"text"`
}

// CommandResponse is the body of a 202 reply to POST /command.
type CommandResponse struct {
	Command string `json:"command"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
