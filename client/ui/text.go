package ui

import (
	"fmt"
	"strings"
	"time"

	cmds "github.com/Sprinter05/duochat/client/commands"
	"github.com/rivo/tview"
)

/* RENDERING */

// Renders a date in screen if the last displayed
// date is on a different day.
func (t *TUI) renderDate(date time.Time) {
	ly, lm, ld := t.status.lastDate.Date()
	ry, rm, rd := date.Date()
	equal := ly == ry && lm == rm && ld == rd

	if equal {
		return
	}

	formatted := date.Format(time.DateOnly)
	fmt.Fprintf(
		t.comp.text,
		"--- %s%s%s ---\n",
		"[green::i]", formatted, "[-::-]",
	)
	t.status.lastDate = date
}

// Renders a message in the screen by previously
// rendering the date. Uses text formatting.
func (t *TUI) renderMsg(msg cmds.Message) {
	at := msg.Timestamp.Local()
	t.renderDate(at)
	format := time.Kitchen // Just time, not date

	// Align with the previous line
	pad := strings.Repeat(" ", len(msg.Sender))
	content := strings.ReplaceAll(tview.Escape(msg.Content), "\n", "\n\t\t\t   "+pad)

	f := at.Format(format)
	color := "[blue::b]"
	switch msg.Sender {
	case cmds.SelfSender:
		color = "[yellow::b]"
	case cmds.SystemSender:
		color = "[gray::b]"
	}

	_, err := fmt.Fprintf(
		t.comp.text,
		"[%s%s%s] at %s%07s%s: %s\n",
		color, msg.Sender, "[-::-]",
		"[gray::u]", f, "[-::-]",
		content,
	)

	if err != nil {
		t.showError(err)
		return
	}

	t.comp.text.ScrollToEnd()
}

// Fills the user list with the roster.
func (t *TUI) renderUsers() {
	t.comp.users.Clear()
	for _, v := range t.sess.Others {
		t.comp.users.AddItem(v, "", 0, nil)
	}
	t.comp.users.SetTitle("Users (" + t.sess.Me + ")")
}

// Shows the logo and the server in use.
func (t *TUI) renderLogo(server string) {
	fmt.Fprintf(t.comp.text, "[purple::b]%s[-::-]", tview.Escape(Logo[1:]))
	fmt.Fprintf(t.comp.text, "Connecting to [::u]%s[::-], use /help for commands\n", server)
}

// Prints the help text under the current messages.
func (t *TUI) renderHelp() {
	fmt.Fprint(t.comp.text, Help[1:])
	fmt.Fprintln(t.comp.text, tview.Escape(cmds.Help))
	t.comp.text.ScrollToEnd()
}

// Displays an error in the error bar temporarily.
func (t *TUI) showError(err error) {
	t.comp.errors.Clear()
	t.area.bottom.ResizeItem(t.comp.errors, 0, 1)
	fmt.Fprintf(t.comp.errors, " [red]Error: %s![-:-]", tview.Escape(err.Error()))

	go func() {
		<-time.After(time.Duration(errorMessage) * time.Second)
		t.app.QueueUpdateDraw(func() {
			t.comp.errors.Clear()
			t.area.bottom.ResizeItem(t.comp.errors, 0, 0)
		})
	}()
}
