package database

import (
	"errors"
	"fmt"

	"clinic-appointment-service/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// Migrate applies (up=true) or rolls back one step of (up=false) the SQL migrations.
func Migrate(cfg config.DBConfig, up bool) error {
	m, err := migrate.New(cfg.MigrationsPath, cfg.URL())
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if up {
		err = m.Up()
	} else {
		err = m.Steps(-1)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Database schema is up to date")
	}
	return nil
}
