package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/server/config"
	"github.com/Sprinter05/duochat/server/creds"
	"github.com/Sprinter05/duochat/server/db"
	"github.com/Sprinter05/duochat/server/hubs"
	"github.com/Sprinter05/duochat/server/msglog"
)

// Returns whether the shell was requested and the env file, if any.
// Usage: server [shell] [envfile]
func parseArgs(args []string) (bool, string) {
	shell := false
	if len(args) > 0 && args[0] == "shell" {
		shell = true
		args = args[1:]
	}

	if len(args) > 0 {
		return shell, args[0]
	}

	return shell, ""
}

// Opens the file database statements get logged to,
// returns nil if there is none
func logFile(path string) *os.File {
	if path == "" {
		return nil
	}

	file, err := os.OpenFile(
		path,
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatal("db log file", err)
	}

	return file
}

func main() {
	// If we default to stderr it won't print unless debugged
	stdlog.SetOutput(os.Stdout)

	shell, envfile := parseArgs(os.Args[1:])

	cfg, err := config.Load(envfile)
	if err != nil {
		log.Environ("environment", err)
	}

	log.Level = cfg.Level()
	fmt.Printf("-> Logging with log level %s...\n", log.Level)

	// Set up database logging file
	var dblog *stdlog.Logger
	if f := logFile(cfg.DBLog); f != nil {
		defer f.Close()
		dblog = stdlog.New(f, "", stdlog.LstdFlags)
	}

	database, err := db.Connect(cfg.DatabaseURL, dblog)
	if err != nil {
		log.Fatal("database connection", err)
	}
	defer db.Close(database)

	store := creds.New(database, cfg.BcryptCost, cfg.SecretKey, cfg.LegacyBackfill)
	msgs := msglog.New(database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if shell {
		NewShell(store, msgs, os.Stdin, os.Stdout, cfg.DatabaseURL).Run(ctx)
		return
	}

	seeds, _ := cfg.Seeds()
	if n := seedUsers(ctx, store, seeds); n > 0 {
		log.Notice(fmt.Sprintf("seeded %d users", n))
	}

	hub := hubs.NewHub(ctx, store, msgs, cfg.MaxClients)
	srv := NewServer(hub, database, cfg.MaxClients, cfg.Origins())

	httpsrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := httpsrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", err)
		}
	}()

	// Indicate that the server is up and running
	fmt.Printf("-- Server running and listening on %s! --\n", cfg.Addr())

	<-ctx.Done()
	log.Notice("inminent server shutdown")

	// Websockets are hijacked so the hub closes them
	hub.Shutdown()

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpsrv.Shutdown(sctx); err != nil {
		log.Error("http shutdown", err)
	}
}
