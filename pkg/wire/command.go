package wire

// Command identifies a request kind delivered by the transport.
type Command uint8

const (
	// CommandUnknown is any command string outside the fixed set.
	CommandUnknown Command = iota
	CommandRead
	CommandWrite
	CommandExecute
	CommandCreate
	CommandDelete
	CommandDiscover
	CommandObserve
	CommandBackup
	CommandRestore
	CommandStateChanged
	CommandReadInstances
	CommandHeartbeat
)

var commandNames = map[Command]string{
	CommandRead:          "read",
	CommandWrite:         "write",
	CommandExecute:       "execute",
	CommandCreate:        "create",
	CommandDelete:        "delete",
	CommandDiscover:      "discover",
	CommandObserve:       "observe",
	CommandBackup:        "backup",
	CommandRestore:       "restore",
	CommandStateChanged:  "stateChanged",
	CommandReadInstances: "readInstances",
	CommandHeartbeat:     "heartbeat",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for c, name := range commandNames {
		m[name] = c
	}
	return m
}()

// ParseCommand maps a transport command name to a Command.
// Unrecognized names yield CommandUnknown.
func ParseCommand(name string) Command {
	return commandsByName[name]
}

// String returns the transport name of the command.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// IsValid returns true if the command is part of the fixed set.
func (c Command) IsValid() bool {
	return c > CommandUnknown && c <= CommandHeartbeat
}

// IsControl returns true for notifications that never produce a response.
func (c Command) IsControl() bool {
	return c == CommandStateChanged || c == CommandHeartbeat
}
