// Turns what the user types into requests and keeps
// track of the state the server reports back.
package commands

import (
	"errors"
	"strings"

	"github.com/Sprinter05/duochat/internal/spec"
)

/* ERRORS */

var (
	ErrorEmptyCmd   = errors.New("empty command given")
	ErrorInvalidCmd = errors.New("invalid command given")
	ErrorArguments  = errors.New("invalid number of arguments")
	ErrorNoDialog   = errors.New("no dialog is open, use /open <user>")
)

/* TYPES */

// Parsed line of user input. If Quit is set
// there is nothing to send.
type Line struct {
	Op   spec.Action
	Args any
	Quit bool
}

// Specifies a command with how many arguments it needs
type command struct {
	args  int
	build func([]string) Line
}

/* LOOKUP */

var cmdLookup map[string]command = map[string]command{
	"/register": {2, func(a []string) Line {
		return Line{Op: spec.REGISTER, Args: spec.RegisterArgs{Username: a[0], Password: a[1]}}
	}},
	"/login": {2, func(a []string) Line {
		return Line{Op: spec.LOGIN, Args: spec.LoginArgs{Username: a[0], Password: a[1]}}
	}},
	"/open": {1, func(a []string) Line {
		return Line{Op: spec.OPEN_DIALOG, Args: spec.OpenDialogArgs{With: a[0]}}
	}},
	"/quit": {0, func([]string) Line {
		return Line{Quit: true}
	}},
}

// Help text for every command
const Help string = `/register <user> <password>: Creates an account and logs in
/login <user> <password>: Logs in
/open <user>: Opens the dialog with a user
/quit: Exits the program
Anything else is sent to the open dialog`

/* FUNCTIONS */

// Parses a line of input. Lines that are not commands
// become a message for the open dialog.
func Parse(text string, dialog string) (Line, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Line{}, ErrorEmptyCmd
	}

	if !strings.HasPrefix(trimmed, "/") {
		if dialog == "" {
			return Line{}, ErrorNoDialog
		}

		return Line{
			Op: spec.CHAT_MESSAGE,
			Args: spec.ChatMessageArgs{
				To:   dialog,
				Text: trimmed,
			},
		}, nil
	}

	fields := strings.Fields(trimmed)
	cmd, ok := cmdLookup[strings.ToLower(fields[0])]
	if !ok {
		return Line{}, ErrorInvalidCmd
	}

	if len(fields)-1 != cmd.args {
		return Line{}, ErrorArguments
	}

	return cmd.build(fields[1:]), nil
}
