package pin_driver

import "voice-drive/drive_state"

type Interface interface {
	// Configure declares the four lines as outputs and drives them low.
	Configure() error
	Write(state drive_state.State) error
	Close() error
}
