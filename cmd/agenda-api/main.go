package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Apurer/agenda-client/internal/app/agenda"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := agenda.Run(ctx); err != nil {
		log.Fatalf("agenda api exited: %v", err)
	}
}
