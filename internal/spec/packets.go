package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

/* TYPES */

// Frame exchanged through the socket, the data
// is decoded according to the event.
type Packet struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Specifies a request that has been validated
// at the boundary. Args always holds the type
// that corresponds to the operation.
type Command struct {
	Op   Action
	Args any
}

// Arguments of a register request.
type RegisterArgs struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Arguments of a login request.
type LoginArgs struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Arguments of an open_dialog request.
type OpenDialogArgs struct {
	With string `json:"with"`
}

// Arguments of a chat_message request.
type ChatMessageArgs struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Accepts any JSON value as the text. Null is an empty
// text and other non string values keep their literal form.
func (a *ChatMessageArgs) UnmarshalJSON(data []byte) error {
	var raw struct {
		To   string          `json:"to"`
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.To = raw.To
	a.Text = ""

	text := bytes.TrimSpace(raw.Text)
	switch {
	case len(text) == 0, bytes.Equal(text, []byte("null")):
	case text[0] == '"':
		if err := json.Unmarshal(text, &a.Text); err != nil {
			return err
		}
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, text); err != nil {
			return err
		}
		a.Text = buf.String()
	}

	return nil
}

// Sent after a successful register or login.
type RosterPayload struct {
	Me     string   `json:"me"`
	Others []string `json:"others"`
}

// Sent with any error event.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Who sent a history entry relative to the requester.
const (
	FromMe   string = "me"
	FromThem string = "them"
)

// Single message of a dialog.
type HistoryEntry struct {
	From string `json:"from"`
	Text string `json:"text"`
	At   string `json:"at"`
}

// Sent as the reply to open_dialog.
type HistoryPayload struct {
	With     string         `json:"with"`
	Messages []HistoryEntry `json:"messages"`
}

// Pushed to both parties of a message.
type ChatPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	At   string `json:"at"`
}

// Sent when a connection is established.
type ServerEventPayload struct {
	Message string `json:"message"`
	SID     string `json:"sid,omitempty"`
}

/* COMMAND FUNCTIONS */

// Prints all information about a request,
// passwords are never printed.
func (c Command) Print(out func(string)) {
	var b strings.Builder
	b.WriteString("-------- EVENT --------\n")
	fmt.Fprintf(&b, "* Action: %d (%s)\n", c.Op, CodeToString(c.Op))
	b.WriteString("-------- PAYLOAD --------\n")
	switch v := c.Args.(type) {
	case RegisterArgs:
		fmt.Fprintf(&b, "[username] %s\n", v.Username)
	case LoginArgs:
		fmt.Fprintf(&b, "[username] %s\n", v.Username)
	case OpenDialogArgs:
		fmt.Fprintf(&b, "[with] %s\n", v.With)
	case ChatMessageArgs:
		fmt.Fprintf(&b, "[to] %s\n[text] %s\n", v.To, v.Text)
	}
	b.WriteString("\n")
	out(b.String())
}

/* PACKET FUNCTIONS */

// Decodes a frame sent by a client into a typed command.
// Unknown or client bound events return ErrorInvalid
// and undecodable frames return ErrorMalformed, in both
// cases the returned command keeps whatever operation
// could be identified.
func Decode(raw []byte) (Command, error) {
	var p Packet
	if err := json.Unmarshal(raw, &p); err != nil {
		return Command{}, ErrorMalformed
	}

	op := StringToCode(p.Event)
	if op == NullOp || !ServerBound(op) {
		return Command{Op: op}, ErrorInvalid
	}

	var args any
	var err error
	switch op {
	case REGISTER:
		var v RegisterArgs
		err = decodeData(p.Data, &v)
		args = v
	case LOGIN:
		var v LoginArgs
		err = decodeData(p.Data, &v)
		args = v
	case OPEN_DIALOG:
		var v OpenDialogArgs
		err = decodeData(p.Data, &v)
		args = v
	case CHAT_MESSAGE:
		var v ChatMessageArgs
		err = decodeData(p.Data, &v)
		args = v
	}

	if err != nil {
		return Command{Op: op}, ErrorMalformed
	}

	return Command{Op: op, Args: args}, nil
}

// Missing or null data leaves the zero value.
func decodeData(data json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, v)
}

// Creates a frame for an event going to a client.
func NewPacket(op Action, payload any) ([]byte, error) {
	if !ClientBound(op) {
		return nil, ErrorInvalid
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Packet{
		Event: CodeToString(op),
		Data:  data,
	})
}

// Reads a frame sent by the server, leaving
// the data to be decoded by the caller.
func ReadPacket(raw []byte) (Action, json.RawMessage, error) {
	var p Packet
	if err := json.Unmarshal(raw, &p); err != nil {
		return NullOp, nil, ErrorMalformed
	}

	op := StringToCode(p.Event)
	if op == NullOp || !ClientBound(op) {
		return op, nil, ErrorInvalid
	}

	return op, p.Data, nil
}

// Creates a frame for a request going to the server.
func NewRequest(op Action, args any) ([]byte, error) {
	if !ServerBound(op) {
		return nil, ErrorInvalid
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Packet{
		Event: CodeToString(op),
		Data:  data,
	})
}

/* TIMESTAMPS */

// Formats a timestamp the way it travels on the wire.
func FormatStamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(StampLayout)
}

// Parses a timestamp received on the wire.
func ParseStamp(s string) (time.Time, error) {
	return time.Parse(StampLayout, s)
}
