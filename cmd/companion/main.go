package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/recoveryhub/companion/pkg/companion"
)

func main() {
	// SIGINT/SIGTERM cancel the context, which drives graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := companion.Main(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
