package config

import (
	"errors"
	"time"

	"github.com/kmit-fdms/fdms/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgres(uri string) (*gorm.DB, error) {
	if uri == "" {
		return nil, errors.New("POSTGRES_URI is not set")
	}
	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection Pooling settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// MigratePostgres creates or updates the document ledger and chat log tables.
func MigratePostgres(db *gorm.DB) error {
	return db.AutoMigrate(&models.ProfileDocument{}, &models.ChatLog{})
}

func ClosePostgres(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
