package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/models"
	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/Sprinter05/duochat/server/db"
	"github.com/Sprinter05/duochat/server/hubs"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// Everything the HTTP handlers share
type Server struct {
	hub     *hubs.Hub
	db      *gorm.DB
	count   *models.Counter
	origins []string // nil allows any origin
}

func NewServer(hub *hubs.Hub, database *gorm.DB, maxClients int, origins []string) *Server {
	return &Server{
		hub:     hub,
		db:      database,
		count:   models.NewCounter(maxClients),
		origins: origins,
	}
}

// Returns the router with every endpoint
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.upgrade).Methods(http.MethodGet)
	return r
}

// Requests without an Origin header come from
// non browser clients and are allowed
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if s.origins == nil || origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	for _, v := range s.origins {
		if strings.EqualFold(v, origin) || strings.EqualFold(v, u.Host) {
			return true
		}
	}

	return false
}

// Always succeeds, the database check only gets logged
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := db.Ping(ctx, s.db); err != nil {
		log.DB("health check", err)
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Upgrades the connection and starts its goroutines
func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	if err := s.count.TryInc(); err != nil {
		if errors.Is(err, models.ErrorFull) {
			log.IP("too many clients", r.RemoteAddr)
		}
		http.Error(w, "server is full", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied
		s.count.Dec()
		log.IP(err.Error(), r.RemoteAddr)
		return
	}

	cl := hubs.NewConn(uuid.NewString(), ws, r.RemoteAddr)
	s.hub.Attach(cl)

	// Buffered channel for intercommunication
	req := make(chan hubs.Request, spec.MaxUserRequests)

	// Writes everything queued for the client
	go cl.WritePump()

	// Listens to the client's frames
	go ListenConnection(cl, req)

	// Runs the client's commands
	go RunTask(s.hub, s.count, cl, req)
}
