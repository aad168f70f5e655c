// Package database opens the relational store and keeps its schema current.
package database

import (
	"fmt"

	"bonlog/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Msg("database opened")
	return db, nil
}

// Migrate applies the schema for all persistent entities.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.AdminGrant{},
		&models.Follow{},
		&models.Post{},
		&models.Comment{},
		&models.Shop{},
		&models.Event{},
		&models.Review{},
		&models.Report{},
		&models.AdminNotification{},
		&models.AdminLog{},
		&models.ScheduledPost{},
	)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
