package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/Sprinter05/duochat/server/creds"
	"github.com/Sprinter05/duochat/server/msglog"
)

/* TYPE DEFINITIONS */

// Specifies a server shell to perform
// operations directly on the database.
type Shell struct {
	creds *creds.Store  // Account storage
	msgs  *msglog.Log   // Message storage
	rd    *bufio.Reader // Input reader
	out   io.Writer     // Where results are printed
	name  string        // Shown in the prompt
}

// Function that specifies a shell command
type shellFunc func(*Shell, context.Context, []string)

/* ERRORS */

var (
	ErrorInvalidCmd error = errors.New("invalid command given")   // invalid command given
	ErrorFewArgs    error = errors.New("too few arguments given") // too few arguments given
)

/* LOOKUP TABLES */

var lookupShell map[string]shellFunc = map[string]shellFunc{
	"ADDUSER": addUser,
	"USERS":   listUsers,
	"HISTORY": showHistory,
	"HELP":    shellHelp,
}

var shellArgs map[string]uint = map[string]uint{
	"ADDUSER": 2,
	"USERS":   0,
	"HISTORY": 2,
	"HELP":    0,
}

// Returns the function and minimum number of
// arguments required to run a command
func getShellCommand(cmd string) (shellFunc, uint, bool) {
	f, fOk := lookupShell[cmd]
	a, aOk := shellArgs[cmd]

	if !fOk || !aOk {
		return f, a, false
	}

	return f, a, true
}

/* COMMANDS */

// Prints the help message with info about all commands
func shellHelp(shell *Shell, _ context.Context, _ []string) {
	fmt.Fprint(shell.out,
		"ADDUSER <username> <password>: Registers a new account\n"+
			"USERS: Lists every registered account\n"+
			"HISTORY <username> <username> [limit]: Shows the dialog between two accounts\n"+
			"EXIT: Exits the shell\n",
	)
}

// Registers an account like a client would
func addUser(shell *Shell, ctx context.Context, args []string) {
	_, err := shell.creds.Register(ctx, args[0], args[1])
	if err != nil {
		shell.showError(err)
		return
	}

	shell.showOk()
}

// Prints all usernames
func listUsers(shell *Shell, ctx context.Context, _ []string) {
	// No account has id 0
	names, err := shell.creds.ListOthers(ctx, 0)
	if err != nil {
		shell.showError(err)
		return
	}

	if len(names) == 0 {
		shell.showWarn("no accounts registered")
		return
	}

	for _, v := range names {
		fmt.Fprintf(shell.out, "%s\n", v)
	}
}

// Prints the dialog between two accounts
func showHistory(shell *Shell, ctx context.Context, args []string) {
	limit := spec.HistoryLimit
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			shell.showError(err)
			return
		}
		limit = n
	}

	users := make([]creds.User, 2)
	for i := range users {
		u, ok, err := shell.creds.Lookup(ctx, args[i])
		if err != nil {
			shell.showError(err)
			return
		}
		if !ok {
			shell.showError(spec.ErrorNotFound)
			return
		}
		users[i] = u
	}

	msgs, err := shell.msgs.History(ctx, users[0].ID, users[1].ID, limit)
	if err != nil {
		shell.showError(err)
		return
	}

	for _, v := range msgs {
		from := users[0].Username
		if v.SenderID == users[1].ID {
			from = users[1].Username
		}
		fmt.Fprintf(shell.out, "[%s] %s: %s\n", spec.FormatStamp(v.CreatedAt), from, v.Text)
	}
}

/* SHELL FUNCTIONS */

// Loops the shell execution until EXIT
// or the input ends
func (shell *Shell) Run(ctx context.Context) {
	fmt.Fprint(shell.out, "Connected to server database, use HELP for information\n")

	for {
		shell.showPrompt()

		plain, err := shell.rd.ReadString('\n')
		text := strings.TrimSpace(plain)
		if text == "" {
			if err != nil {
				return
			}
			continue
		}

		input := strings.Fields(text)
		if input[0] == "EXIT" {
			return
		}

		fun, args, ok := getShellCommand(input[0])
		if !ok {
			shell.showError(ErrorInvalidCmd)
		} else if (len(input) - 1) < int(args) {
			shell.showError(ErrorFewArgs)
		} else {
			fun(shell, ctx, input[1:])
		}

		if err != nil {
			return
		}
	}
}

// Shows a confirmation message
func (shell *Shell) showOk() {
	fmt.Fprint(shell.out,
		"[-] Operation completed\n",
	)
}

// Shows a warning message with a given text
func (shell *Shell) showWarn(text string) {
	fmt.Fprintf(shell.out,
		"[!] Warning: %s\n",
		text,
	)
}

// Shows an error message
func (shell *Shell) showError(err error) {
	fmt.Fprintf(shell.out,
		"[X] Problem occurred: %s\n",
		err,
	)
}

// Prints the shell prompt text
func (shell *Shell) showPrompt() {
	fmt.Fprintf(shell.out,
		"\033[36mdatabase@%s > \033[0m",
		shell.name,
	)
}

// Returns a shell reading commands from the given input
func NewShell(store *creds.Store, msgs *msglog.Log, in io.Reader, out io.Writer, name string) *Shell {
	return &Shell{
		creds: store,
		msgs:  msgs,
		rd:    bufio.NewReader(in),
		out:   out,
		name:  name,
	}
}
