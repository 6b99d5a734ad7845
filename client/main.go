package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Sprinter05/duochat/client/commands"
	"github.com/Sprinter05/duochat/client/ui"
)

var serverURL string

func init() {
	flag.StringVar(&serverURL, "server", "ws://localhost:5000/ws", "Websocket endpoint of the chat server.")
	flag.Parse()
}

// Main client function
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := commands.Connect(ctx, serverURL)
	cancel()
	if err != nil {
		log.Fatalf("could not connect to server: %s", err)
	}
	defer conn.Close()

	t, app := ui.New(conn, serverURL)
	go t.Listen()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
