package drive_state

import (
	"fmt"
	"strings"
)

// Command is a discrete motion intent produced from one utterance.
type Command int

const (
	Forward Command = iota + 1
	Backward
	TurnLeft
	TurnRight
	Stop
)

var commandNames = map[Command]string{
	Forward:   "forward",
	Backward:  "backward",
	TurnLeft:  "left",
	TurnRight: "right",
	Stop:      "stop",
}

// Commands lists every command in declaration order.
func Commands() []Command {
	return []Command{Forward, Backward, TurnLeft, TurnRight, Stop}
}

func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}

	return fmt.Sprintf("command(%d)", int(c))
}

// ParseCommand accepts the names returned by String.
func ParseCommand(name string) (Command, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	for cmd, n := range commandNames {
		if n == name {
			return cmd, nil
		}
	}

	return 0, fmt.Errorf("unknown drive command %q", name)
}
