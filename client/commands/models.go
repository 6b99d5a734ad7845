package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sprinter05/duochat/internal/spec"
)

// Who a rendered line is attributed to
const (
	SystemSender string = "System"
	SelfSender   string = "You"
)

// Line to be displayed to the user
type Message struct {
	Sender    string
	Content   string
	Timestamp time.Time
}

// What happened after an event was applied
type Update struct {
	Messages []Message // Lines to append
	Clear    bool      // Whether the text area must be emptied first
	Roster   bool      // Whether the roster changed
	Err      error     // Error to show
}

// Client side view of the session, not safe to use
// concurrently.
type Session struct {
	Me     string
	Dialog string
	Others []string
}

// Parses a timestamp from the wire, falling
// back to the current time.
func stamp(s string) time.Time {
	t, err := spec.ParseStamp(s)
	if err != nil {
		return time.Now()
	}
	return t.Local()
}

func system(text string) Message {
	return Message{
		Sender:    SystemSender,
		Content:   text,
		Timestamp: time.Now(),
	}
}

// Applies an event received from the server.
func (s *Session) Apply(op spec.Action, data json.RawMessage) Update {
	switch op {
	case spec.SERVER_EVENT:
		var ev spec.ServerEventPayload
		if err := json.Unmarshal(data, &ev); err != nil {
			return Update{Err: err}
		}
		return Update{Messages: []Message{system(ev.Message)}}

	case spec.REGISTER_OK, spec.LOGIN_OK:
		var r spec.RosterPayload
		if err := json.Unmarshal(data, &r); err != nil {
			return Update{Err: err}
		}
		s.Me = r.Me
		s.Others = r.Others
		s.Dialog = ""
		return Update{
			Messages: []Message{system(fmt.Sprintf("logged in as %s", r.Me))},
			Clear:    true,
			Roster:   true,
		}

	case spec.HISTORY:
		var h spec.HistoryPayload
		if err := json.Unmarshal(data, &h); err != nil {
			return Update{Err: err}
		}
		s.Dialog = h.With

		msgs := make([]Message, 0, len(h.Messages)+1)
		msgs = append(msgs, system(fmt.Sprintf("dialog with %s", h.With)))
		for _, v := range h.Messages {
			sender := h.With
			if v.From == spec.FromMe {
				sender = SelfSender
			}
			msgs = append(msgs, Message{
				Sender:    sender,
				Content:   v.Text,
				Timestamp: stamp(v.At),
			})
		}
		return Update{Messages: msgs, Clear: true}

	case spec.CHAT_MESSAGE:
		var c spec.ChatPayload
		if err := json.Unmarshal(data, &c); err != nil {
			return Update{Err: err}
		}

		// Echo of our own message
		if c.From == s.Me {
			if c.To != s.Dialog {
				return Update{}
			}
			return Update{Messages: []Message{{
				Sender:    SelfSender,
				Content:   c.Text,
				Timestamp: stamp(c.At),
			}}}
		}

		if c.From != s.Dialog {
			return Update{Messages: []Message{
				system(fmt.Sprintf("new message from %s, use /open %s", c.From, c.From)),
			}}
		}

		return Update{Messages: []Message{{
			Sender:    c.From,
			Content:   c.Text,
			Timestamp: stamp(c.At),
		}}}

	case spec.REGISTER_ERROR, spec.LOGIN_ERROR, spec.DIALOG_ERROR, spec.SEND_ERROR, spec.SERVER_ERROR:
		var e spec.ErrorPayload
		if err := json.Unmarshal(data, &e); err != nil {
			return Update{Err: err}
		}
		return Update{Err: errors.New(e.Error)}
	}

	return Update{}
}
