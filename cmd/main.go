package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"clinic-appointment-service/cmd/bootstrap"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New()
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		logrus.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}
