package database

import (
	"log"
	"os"
	"path/filepath"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects the database backend
type Options struct {
	// Path of the SQLite file, used when URL is empty
	Path string
	// URL is a PostgreSQL DSN
	URL string
	// Quiet silences the GORM SQL logger
	Quiet bool
}

// Initialize creates and returns a database connection
func Initialize(opts Options) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	if opts.Quiet {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	var dialector gorm.Dialector
	if opts.URL != "" {
		log.Printf("[Database] Using PostgreSQL")
		dialector = postgres.Open(opts.URL)
	} else {
		// Ensure the directory exists
		dir := filepath.Dir(opts.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		log.Printf("[Database] Using SQLite at %s", opts.Path)
		dialector = sqlite.Open(opts.Path)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Workflow{},
		&models.CalendarAccount{},
		&models.CalendarTrigger{},
		&models.ProcessingQueueEntry{},
		&models.ExecutionHistoryEntry{},
		&models.Log{},
	)
}
