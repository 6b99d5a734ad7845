package main

import (
	"errors"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/models"
	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/Sprinter05/duochat/server/hubs"
)

// Tells the client a frame could not be understood
func sendFrameError(cl *hubs.Conn, err error) {
	pak, e := spec.NewPacket(spec.SERVER_ERROR, spec.ErrorPayload{
		Error: err.Error(),
	})
	if e != nil {
		log.Packet(spec.SERVER_ERROR, e)
		return
	}

	if !cl.Push(pak) {
		log.Dropped(spec.SERVER_ERROR, cl.Addr())
	}
}

// Listens from a client and communicates with the hub through the channels.
// Closing the requests channel on exit hands the cleanup to RunTask.
func ListenConnection(cl *hubs.Conn, req chan<- hubs.Request) {
	defer close(req)

	log.Connection(cl.Addr(), false)

	for {
		raw, err := cl.ReadFrame()
		if err != nil {
			if errors.Is(err, spec.ErrorMalformed) {
				log.Read("frame", cl.Addr(), err)
				sendFrameError(cl, err)
				continue
			}

			if !hubs.ExpectedClose(err) {
				log.Read("frame", cl.Addr(), err)
			}
			return
		}

		cmd, err := spec.Decode(raw)
		if err != nil {
			// Unknown events and bad frames do not end the connection
			log.Read("event", cl.Addr(), err)
			if errors.Is(err, spec.ErrorInvalid) {
				log.Invalid(spec.CodeToString(cmd.Op), cl.Addr())
			}
			sendFrameError(cl, err)
			continue
		}

		req <- hubs.Request{
			Conn:    cl,
			Command: cmd,
		}
	}
}

// Wraps concurrency with each client's command,
// requests of a connection run one after another.
// Once the reader is gone and every queued request
// has run the connection is removed from the hub.
func RunTask(hub *hubs.Hub, c *models.Counter, cl *hubs.Conn, req <-chan hubs.Request) {
	defer func() {
		// Request cleaning the tables
		hub.Cleanup(cl)
		// Decrease amount of connected clients
		c.Dec()
		// Log connection close
		log.Connection(cl.Addr(), true)
	}()

	for r := range req {
		// Show request
		log.Request(r.Conn.Addr(), r.Command)
		hubs.Process(hub, r)
	}
}
