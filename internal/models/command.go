package models

import "strings"

type Command int

const (
	CommandUnrecognized Command = iota
	CommandStart
	CommandBroadcast
)

var (
	startCommands     = map[string]struct{}{"/start": {}}
	broadcastCommands = map[string]struct{}{"send_poll": {}, "/send_poll": {}, "poll": {}}
)

// ClassifyCommand matches the whole message text, surrounding blanks aside.
func ClassifyCommand(text string) Command {
	text = strings.TrimSpace(text)
	if _, ok := startCommands[text]; ok {
		return CommandStart
	}
	if _, ok := broadcastCommands[text]; ok {
		return CommandBroadcast
	}
	return CommandUnrecognized
}

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandBroadcast:
		return "broadcast"
	default:
		return "unrecognized"
	}
}
