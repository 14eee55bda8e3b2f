package drive_state

type Interface interface {
	Apply(cmd Command) error
	Current() State
}

// Writer puts a state on the output lines.
type Writer interface {
	Write(state State) error
}
