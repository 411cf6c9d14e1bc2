package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zereker/packetconn"
)

type printer struct {
	done chan struct{}
}

func (p *printer) OnMessage(elements []packetconn.Element) {
	for _, e := range elements {
		slog.Info("message from server", "kind", e.Kind, "payload", string(e.Payload))
	}
}

func (p *printer) OnDisconnected() {
	slog.Info("disconnected from server")
	close(p.done)
}

func (p *printer) OnUnableToConnect() {
	slog.Error("unable to connect")
}

func main() {
	handler := &printer{done: make(chan struct{})}

	client, err := packetconn.NewClient(handler,
		packetconn.DialTimeoutOption(5*time.Second),
		packetconn.WriteTimeoutOption(10*time.Second),
	)
	if err != nil {
		slog.Error("failed to create client", "error", err)
		os.Exit(1)
	}

	if err = client.Connect(context.Background(), "localhost", 7070); err != nil {
		os.Exit(1)
	}

	if err = client.Send(packetconn.NewMessageString("hello")); err != nil {
		slog.Error("send failed", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		slog.Info("shutting down client...")
		client.Stop()
	case <-handler.done:
	}

	client.Wait()
}
