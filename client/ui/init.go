// Terminal interface of the chat client.
package ui

import (
	"encoding/json"
	"errors"
	"time"

	cmds "github.com/Sprinter05/duochat/client/commands"
	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const Logo string = `
     _                  _           _   
  __| |_   _  ___   ___| |__   __ _| |_ 
 / _  | | | |/ _ \ / __| '_ \ / _  | __|
| (_| | |_| | (_) | (__| | | | (_| | |_ 
 \__,_|\__,_|\___/ \___|_| |_|\__,_|\__|

`

const Help string = `
[-::u]Keybinds Manual:[-::-]

[yellow::b]Ctrl-Q[-::-]: Exit program

[yellow::b]Ctrl-T[-::-]: Focus user list/input window
	- In the [-::b]user list[-::-] press [green]Enter[-::-] to open the dialog

[yellow::b]Ctrl-U[-::-]: Show/Hide user list

[yellow::b]Ctrl-R[-::-]: Redraw screen

[-::u]Commands Manual:[-::-]

`

const (
	inputSize    int  = 3
	errorMessage uint = 3 // seconds
)

var ErrorOffline = errors.New("connection to the server is closed")

type areas struct {
	main   *tview.Flex
	bottom *tview.Flex
}

type components struct {
	text   *tview.TextView
	errors *tview.TextView
	input  *tview.InputField
	users  *tview.List
}

type state struct {
	showingUsers bool
	offline      bool
	lastDate     time.Time
}

type TUI struct {
	area   areas
	comp   components
	status state
	sess   cmds.Session
	conn   *cmds.Conn
	app    *tview.Application
}

func setupLayout() (areas, components) {
	comps := components{
		text:   tview.NewTextView(),
		errors: tview.NewTextView(),
		input:  tview.NewInputField(),
		users:  tview.NewList(),
	}

	bottom := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(comps.text, 0, 30, false).
		AddItem(comps.errors, 0, 0, false).
		AddItem(comps.input, inputSize, 0, true)
	bottom.SetBackgroundColor(tcell.ColorDefault)

	main := tview.NewFlex().
		AddItem(comps.users, 0, 1, false).
		AddItem(bottom, 0, 5, true)
	main.SetBackgroundColor(tcell.ColorDefault)

	return areas{main: main, bottom: bottom}, comps
}

func setupStyle(t *TUI) {
	t.comp.text.
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true).
		SetScrollable(true).
		SetBackgroundColor(tcell.ColorDefault).
		SetBorder(true).
		SetTitle("Messages")

	t.comp.users.
		SetMainTextStyle(tcell.StyleDefault.
			Background(tcell.ColorDefault)).
		SetSelectedStyle(tcell.StyleDefault.Underline(true)).
		SetSelectedTextColor(tcell.ColorPurple).
		ShowSecondaryText(false).
		SetBorder(true).
		SetTitle("Users").
		SetBackgroundColor(tcell.ColorDefault)

	t.comp.input.
		SetLabel(" > ").
		SetFieldBackgroundColor(tcell.ColorDefault).
		SetPlaceholderStyle(tcell.StyleDefault.
			Background(tcell.ColorDefault).
			Foreground(tcell.ColorGreen)).
		SetPlaceholder("Write here, /help for commands...").
		SetBackgroundColor(tcell.ColorDefault).
		SetBorder(true)

	t.comp.errors.
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true).
		SetBackgroundColor(tcell.ColorDefault).
		SetBorder(false)
}

func setupHandlers(t *TUI) {
	t.comp.users.SetSelectedFunc(func(i int, s1, s2 string, r rune) {
		t.send(spec.OPEN_DIALOG, spec.OpenDialogArgs{With: s1})
		t.app.SetFocus(t.comp.input)
	})

	t.comp.users.SetDoneFunc(func() {
		t.app.SetFocus(t.comp.input)
	})

	t.comp.text.SetChangedFunc(func() {
		t.app.Draw()
	})
}

func setupInput(t *TUI) {
	t.comp.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}

		text := t.comp.input.GetText()
		t.comp.input.SetText("")

		if text == "/help" {
			t.renderHelp()
			return
		}

		line, err := cmds.Parse(text, t.sess.Dialog)
		if err != nil {
			if !errors.Is(err, cmds.ErrorEmptyCmd) {
				t.showError(err)
			}
			return
		}

		if line.Quit {
			t.app.Stop()
			return
		}

		t.send(line.Op, line.Args)
	})
}

func setupKeybinds(t *TUI) {
	t.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlQ:
			t.app.Stop()
		case tcell.KeyCtrlC:
			return nil
		case tcell.KeyCtrlU:
			if t.status.showingUsers {
				t.area.main.ResizeItem(t.comp.users, 0, 0)
				t.status.showingUsers = false
			} else {
				t.area.main.ResizeItem(t.comp.users, 0, 1)
				t.status.showingUsers = true
			}
		case tcell.KeyCtrlT:
			if !t.comp.users.HasFocus() {
				t.app.SetFocus(t.comp.users)
			} else {
				t.app.SetFocus(t.comp.input)
			}
			return nil
		case tcell.KeyCtrlR:
			t.app.Sync()
		}
		return event
	})
}

// Sends a request, showing an error if it fails.
func (t *TUI) send(op spec.Action, args any) {
	if t.status.offline {
		t.showError(ErrorOffline)
		return
	}

	if err := t.conn.Send(op, args); err != nil {
		t.showError(err)
	}
}

// Applies an event on the interface goroutine.
func (t *TUI) receive(op spec.Action, data json.RawMessage) {
	t.app.QueueUpdateDraw(func() {
		up := t.sess.Apply(op, data)
		if up.Err != nil {
			t.showError(up.Err)
		}

		if up.Clear {
			t.comp.text.Clear()
			t.status.lastDate = time.Time{}
		}

		if up.Roster {
			t.renderUsers()
		}

		if t.sess.Dialog != "" {
			t.comp.text.SetTitle("Dialog with " + t.sess.Dialog)
		}

		for _, v := range up.Messages {
			t.renderMsg(v)
		}
	})
}

// Reads from the server until the connection ends.
func (t *TUI) Listen() {
	err := t.conn.Listen(t.receive)
	t.app.QueueUpdateDraw(func() {
		t.status.offline = true
		t.renderMsg(cmds.Message{
			Sender:    cmds.SystemSender,
			Content:   "disconnected from the server",
			Timestamp: time.Now(),
		})
		if err != nil {
			t.showError(err)
		}
	})
}

// Creates the interface for an established connection,
// Listen must be run for events to show up.
func New(conn *cmds.Conn, server string) (*TUI, *tview.Application) {
	areas, comps := setupLayout()
	t := &TUI{
		comp: comps,
		area: areas,
		conn: conn,
		status: state{
			showingUsers: true,
		},
	}
	t.app = tview.NewApplication().
		EnableMouse(true).
		SetRoot(t.area.main, true).
		SetFocus(t.comp.input)

	setupKeybinds(t)
	setupHandlers(t)
	setupStyle(t)
	setupInput(t)

	t.renderLogo(server)

	return t, t.app
}
