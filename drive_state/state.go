package drive_state

// State is the level of the four direction lines.
type State struct {
	RightForward  bool `json:"right_forward"`
	LeftForward   bool `json:"left_forward"`
	RightBackward bool `json:"right_backward"`
	LeftBackward  bool `json:"left_backward"`
}

var table = map[Command]State{
	Forward:   {RightForward: true, LeftForward: true},
	Backward:  {RightBackward: true, LeftBackward: true},
	TurnLeft:  {RightForward: true, LeftBackward: true},
	TurnRight: {LeftForward: true, RightBackward: true},
	Stop:      {},
}

// StateFor returns the table row for cmd.
func StateFor(cmd Command) (State, bool) {
	s, ok := table[cmd]
	return s, ok
}

// Valid reports whether no motor has both of its direction lines high.
func (s State) Valid() bool {
	return !(s.RightForward && s.RightBackward) && !(s.LeftForward && s.LeftBackward)
}

func (s State) IsStopped() bool {
	return s == State{}
}

// CommandFor is the reverse lookup of the table.
func CommandFor(s State) (Command, bool) {
	for _, cmd := range Commands() {
		if table[cmd] == s {
			return cmd, true
		}
	}

	return 0, false
}
