package models

import "strings"

// CommandType enumerates the chat commands outlet staff can send.
type CommandType string

const (
	CommandStock    CommandType = "stock"
	CommandLowStock CommandType = "lowstock"
	CommandHelp     CommandType = "help"
	CommandUnknown  CommandType = "unknown"
)

// Command represents a parsed instruction extracted from a chat message.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from free-form text. Arguments keep their
// original case so outlet and model codes survive untouched.
func ParseCommand(message string) Command {
	tokens := strings.Fields(strings.TrimSpace(message))
	cmd := Command{Type: CommandUnknown, Raw: message}
	if len(tokens) == 0 {
		return cmd
	}

	switch CommandType(strings.ToLower(strings.TrimPrefix(tokens[0], "/"))) {
	case CommandStock:
		cmd.Type = CommandStock
	case CommandLowStock:
		cmd.Type = CommandLowStock
	case CommandHelp:
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}
