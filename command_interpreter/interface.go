package command_interpreter

import "voice-drive/drive_state"

type Interface interface {
	// Interpret returns the single command carried by text, if any.
	Interpret(text string) (drive_state.Command, bool)
}
