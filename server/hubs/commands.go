package hubs

import (
	"strings"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/spec"
)

/* LOOKUP */

// Function mapping table
var cmdLookup map[spec.Action]action = map[spec.Action]action{
	spec.REGISTER:     registerUser,
	spec.LOGIN:        loginUser,
	spec.OPEN_DIALOG:  openDialog,
	spec.CHAT_MESSAGE: chatMessage,
}

/* WRAPPER FUNCTIONS */

// Check which action to perform and run it
func Process(h *Hub, r Request) {
	fun, ok := cmdLookup[r.Command.Op]
	if !ok {
		// Invalid action is trying to be ran
		log.Invalid(spec.CodeToString(r.Command.Op), r.Conn.Addr())
		sendErrorPacket(spec.NullOp, spec.ErrorInvalid, r.Conn)
		return
	}

	// Run command
	fun(h, r)
}

// Binds the connection and replies with the roster of the account
func (h *Hub) startSession(r Request, reply spec.Action, id uint) {
	ctx := h.shtdwn

	user, err := h.creds.Get(ctx, id)
	if err != nil {
		sendErrorPacket(r.Command.Op, err, r.Conn)
		return
	}

	others, err := h.creds.ListOthers(ctx, id)
	if err != nil {
		sendErrorPacket(r.Command.Op, err, r.Conn)
		return
	}

	// Replaces a previous login on the same connection
	h.sessions.Bind(r.Conn.ID(), id)

	// Cleanup already ran, closed connections stay unbound
	if r.Conn.Closed() {
		h.sessions.Unbind(r.Conn.ID())
		return
	}

	sendPacket(r.Conn, reply, spec.RosterPayload{
		Me:     user.Username,
		Others: others,
	})
}

/* COMMANDS */

// Replies with REGISTER_OK or REGISTER_ERROR
func registerUser(h *Hub, r Request) {
	args, ok := r.Command.Args.(spec.RegisterArgs)
	if !ok {
		sendErrorPacket(spec.REGISTER, spec.ErrorMalformed, r.Conn)
		return
	}

	id, err := h.creds.Register(h.shtdwn, args.Username, args.Password)
	if err != nil {
		log.User(args.Username, "registration", err)
		sendErrorPacket(spec.REGISTER, err, r.Conn)
		return
	}

	h.startSession(r, spec.REGISTER_OK, id)
}

// Replies with LOGIN_OK or LOGIN_ERROR
func loginUser(h *Hub, r Request) {
	args, ok := r.Command.Args.(spec.LoginArgs)
	if !ok {
		sendErrorPacket(spec.LOGIN, spec.ErrorMalformed, r.Conn)
		return
	}

	id, err := h.creds.Authenticate(h.shtdwn, args.Username, args.Password)
	if err != nil {
		log.User(args.Username, "login", err)
		sendErrorPacket(spec.LOGIN, err, r.Conn)
		return
	}

	h.startSession(r, spec.LOGIN_OK, id)
}

// Replies with HISTORY, DIALOG_ERROR or LOGIN_ERROR
func openDialog(h *Hub, r Request) {
	args, ok := r.Command.Args.(spec.OpenDialogArgs)
	if !ok {
		sendErrorPacket(spec.OPEN_DIALOG, spec.ErrorMalformed, r.Conn)
		return
	}
	ctx := h.shtdwn

	me, ok := h.Session(r.Conn)
	if !ok {
		sendErrorPacket(spec.OPEN_DIALOG, spec.ErrorNoSession, r.Conn)
		return
	}

	other, found, err := h.creds.Lookup(ctx, args.With)
	if err != nil {
		sendErrorPacket(spec.OPEN_DIALOG, err, r.Conn)
		return
	}
	if !found {
		sendErrorPacket(spec.OPEN_DIALOG, spec.ErrorNotFound, r.Conn)
		return
	}

	msgs, err := h.msgs.History(ctx, me, other.ID, spec.HistoryLimit)
	if err != nil {
		sendErrorPacket(spec.OPEN_DIALOG, err, r.Conn)
		return
	}

	// Tagged relative to whoever asked
	entries := make([]spec.HistoryEntry, 0, len(msgs))
	for _, v := range msgs {
		from := spec.FromThem
		if v.SenderID == me {
			from = spec.FromMe
		}

		entries = append(entries, spec.HistoryEntry{
			From: from,
			Text: v.Text,
			At:   spec.FormatStamp(v.CreatedAt),
		})
	}

	sendPacket(r.Conn, spec.HISTORY, spec.HistoryPayload{
		With:     other.Username,
		Messages: entries,
	})
}

// Pushes CHAT_MESSAGE to both parties or replies with
// SEND_ERROR or LOGIN_ERROR. Nothing is pushed unless
// the message was stored.
func chatMessage(h *Hub, r Request) {
	args, ok := r.Command.Args.(spec.ChatMessageArgs)
	if !ok {
		sendErrorPacket(spec.CHAT_MESSAGE, spec.ErrorMalformed, r.Conn)
		return
	}
	ctx := h.shtdwn

	me, ok := h.Session(r.Conn)
	if !ok {
		sendErrorPacket(spec.CHAT_MESSAGE, spec.ErrorNoSession, r.Conn)
		return
	}

	if strings.TrimSpace(args.To) == "" || strings.TrimSpace(args.Text) == "" {
		sendErrorPacket(
			spec.CHAT_MESSAGE,
			spec.Errorf(spec.ErrorValidation, "both 'to' and 'text' required"),
			r.Conn,
		)
		return
	}

	sender, err := h.creds.Get(ctx, me)
	if err != nil {
		sendErrorPacket(spec.CHAT_MESSAGE, err, r.Conn)
		return
	}

	recv, found, err := h.creds.Lookup(ctx, args.To)
	if err != nil {
		sendErrorPacket(spec.CHAT_MESSAGE, err, r.Conn)
		return
	}
	if !found {
		sendErrorPacket(
			spec.CHAT_MESSAGE,
			spec.Errorf(spec.ErrorNotFound, "recipient not found"),
			r.Conn,
		)
		return
	}

	if recv.ID == me {
		sendErrorPacket(
			spec.CHAT_MESSAGE,
			spec.Errorf(spec.ErrorValidation, "cannot message yourself"),
			r.Conn,
		)
		return
	}

	msg, err := h.msgs.Append(ctx, me, recv.ID, args.Text)
	if err != nil {
		log.User(sender.Username, "message to "+recv.Username, err)
		sendErrorPacket(spec.CHAT_MESSAGE, err, r.Conn)
		return
	}

	pak, err := spec.NewPacket(spec.CHAT_MESSAGE, spec.ChatPayload{
		From: sender.Username,
		To:   recv.Username,
		Text: msg.Text,
		At:   spec.FormatStamp(msg.CreatedAt),
	})
	if err != nil {
		log.Packet(spec.CHAT_MESSAGE, err)
		sendErrorPacket(spec.CHAT_MESSAGE, spec.ErrorServer, r.Conn)
		return
	}

	// Sender and receiver are different so no
	// connection appears twice
	targets := h.sessions.ConnectionsFor(me)
	targets = append(targets, h.sessions.ConnectionsFor(recv.ID)...)
	for _, id := range targets {
		cl, ok := h.FindConn(id)
		if !ok {
			continue
		}

		if !cl.Push(pak) {
			log.Dropped(spec.CHAT_MESSAGE, cl.Addr())
		}
	}
}
