package model

import (
	"fmt"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a command string (without the leading '/' or ':').
func ParseCommand(input string) Command {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}
}

// ErrUsage reports a command invoked with the wrong arguments.
type ErrUsage string

func (e ErrUsage) Error() string { return "usage: " + string(e) }

// ErrUnknownCommand reports a command name nobody handles.
type ErrUnknownCommand string

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("unknown command /%s", string(e))
}

// Action tells the UI what to do after a line was executed.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionHelp
)
