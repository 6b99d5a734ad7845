// Routing of client requests: sessions, live connections
// and the handlers that serve every event.
package hubs

import (
	"context"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/models"
	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/Sprinter05/duochat/server/creds"
	"github.com/Sprinter05/duochat/server/msglog"
)

/* DEPENDENCIES */

// Account operations the hub needs.
type Credentials interface {
	Register(ctx context.Context, username string, password string) (uint, error)
	Authenticate(ctx context.Context, username string, password string) (uint, error)
	Lookup(ctx context.Context, username string) (creds.User, bool, error)
	Get(ctx context.Context, id uint) (creds.User, error)
	ListOthers(ctx context.Context, excluding uint) ([]string, error)
}

// Message operations the hub needs.
type Messages interface {
	Append(ctx context.Context, sender uint, receiver uint, body string) (msglog.Message, error)
	History(ctx context.Context, a uint, b uint, limit int) ([]msglog.Message, error)
}

/* TYPES */

// Main data structure that stores all information shared
// by all client connections. It is safe to use concurrently.
type Hub struct {
	creds    Credentials                 // Account storage
	msgs     Messages                    // Message storage
	sessions *Registry                   // Which account each connection is logged in as
	conns    models.Table[string, *Conn] // Every live connection by id
	shtdwn   context.Context             // Used to wait for a shutdown
	close    context.CancelFunc          // Used to trigger a shutdown
}

/* HUB MAIN */

// Initialises all data structures the hub needs to function,
// the hub shuts down when the context is done or Shutdown is called.
func NewHub(ctx context.Context, c Credentials, m Messages, size int) *Hub {
	shtdwn, cancel := context.WithCancel(ctx)
	return &Hub{
		creds:    c,
		msgs:     m,
		sessions: NewRegistry(size),
		conns:    models.NewTable[string, *Conn](size),
		shtdwn:   shtdwn,
		close:    cancel,
	}
}

/* HUB FUNCTIONS */

// Registers a new connection and greets it.
func (hub *Hub) Attach(cl *Conn) {
	hub.conns.Add(cl.ID(), cl)
	sendPacket(cl, spec.SERVER_EVENT, spec.ServerEventPayload{
		Message: "Connected",
		SID:     cl.ID(),
	})
}

// Removes all mentions of a connection that just
// disconnected from the hub. It never fails.
// The connection is closed before unbinding so a
// concurrent login can tell it must not bind.
func (hub *Hub) Cleanup(cl *Conn) {
	cl.Close()
	hub.sessions.Unbind(cl.ID())
	hub.conns.Remove(cl.ID())
}

// Tries to find a live connection by its id.
func (hub *Hub) FindConn(id string) (*Conn, bool) {
	return hub.conns.Get(id)
}

// Returns the account a connection is logged in as.
func (hub *Hub) Session(cl *Conn) (uint, bool) {
	return hub.sessions.Resolve(cl.ID())
}

// Amount of live connections.
func (hub *Hub) Online() int {
	return hub.conns.Len()
}

// Closed once the hub has shut down.
func (hub *Hub) Done() <-chan struct{} {
	return hub.shtdwn.Done()
}

// Closes every connection and stops serving requests.
// The readers of each connection run their own cleanup.
func (hub *Hub) Shutdown() {
	list := hub.conns.GetAll()
	for _, v := range list {
		v.Close()
	}

	hub.close()
	log.Notice("hub shutdown")
}
