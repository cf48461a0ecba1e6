package db

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go_sitectl/internal/model"
)

// Migrate runs database migrations for all models
func Migrate(db *gorm.DB, log *logrus.Logger) error {
	log.WithField("component", "db").Info("Starting database migration...")

	models := []interface{}{
		&model.Site{},
		&model.SiteOperation{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.WithField("component", "db").Infof("Database migration completed (%d tables)", len(models))
	return nil
}
