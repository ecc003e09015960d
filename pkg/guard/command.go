package guard

// Command is a single inbound control byte.
type Command byte

const (
	// CommandOpen opens the shade and lights the action LED.
	CommandOpen Command = 'A'
	// CommandClose closes the shade and clears the action LED.
	CommandClose Command = 'F'
)

func (c Command) String() string {
	switch c {
	case CommandOpen:
		return "open"
	case CommandClose:
		return "close"
	}
	return "unknown"
}

// ParseCommand validates b. Unknown bytes return a *CommandError that
// matches ErrUnrecognizedCommand.
func ParseCommand(b byte) (Command, error) {
	switch c := Command(b); c {
	case CommandOpen, CommandClose:
		return c, nil
	}
	return 0, &CommandError{Byte: b}
}

// CommandFor returns the command that moves the shade to p.
func CommandFor(p Position) Command {
	if p == Open {
		return CommandOpen
	}
	return CommandClose
}
