package hubs

import (
	"errors"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/spec"
)

/* TYPE DEFINITIONS */

// Specifies the functions to run depending on the event
type action func(*Hub, Request)

// Determines a request to be processed by a thread
type Request struct {
	Conn    *Conn
	Command spec.Command
}

/* AUXILIARY FUNCTIONS */

// Creates and queues an event for a connection
func sendPacket(cl *Conn, op spec.Action, payload any) {
	pak, err := spec.NewPacket(op, payload)
	if err != nil {
		log.Packet(op, err)
		return
	}

	if !cl.Push(pak) {
		log.Dropped(op, cl.Addr())
	}
}

// Sends the error event that corresponds to the request.
// Missing sessions are always reported as a login error.
func sendErrorPacket(op spec.Action, err error, cl *Conn) {
	ev := spec.ErrorEvent(op)
	if errors.Is(err, spec.ErrorNoSession) {
		ev = spec.LOGIN_ERROR
	}

	sendPacket(cl, ev, spec.ErrorPayload{
		Error: errorText(op, err),
	})
}

// Turns an error into the text shown to the client,
// internal details never reach it.
func errorText(op spec.Action, err error) string {
	switch {
	case op == spec.LOGIN && errors.Is(err, spec.ErrorNotFound):
		// Do not tell which part was wrong
		return spec.ErrorCredentials.Error()
	case errors.Is(err, spec.ErrorStorage):
		if op == spec.CHAT_MESSAGE {
			return "message could not be sent"
		}
		return spec.ErrorStorage.Error()
	case errors.Is(err, spec.ErrorServer):
		return spec.ErrorServer.Error()
	}

	var serr spec.SpecError
	if errors.As(err, &serr) {
		return serr.Text
	}

	// Unexpected error
	log.Error("request "+spec.CodeToString(op), err)
	return spec.ErrorServer.Error()
}
