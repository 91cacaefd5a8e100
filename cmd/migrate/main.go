package main

import (
	"flag"

	"clinic-appointment-service/config"
	"clinic-appointment-service/internal/infrastructure/database"

	"github.com/sirupsen/logrus"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if err := database.Migrate(cfg.DB, !*down); err != nil {
		logrus.Fatalf("Migration failed: %v", err)
	}
}
