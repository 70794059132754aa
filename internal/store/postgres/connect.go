package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens a gorm *gorm.DB against dsn and auto-migrates the single
// `event` table spec §6 names.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := db.AutoMigrate(&eventModel{}); err != nil {
		return nil, fmt.Errorf("postgres: automigrate: %w", err)
	}
	return db, nil
}
