package db

import (
	"fmt"
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens a GORM connection from a DATABASE_URL-style DSN. Supported
// schemes are postgres:// and sqlite://; an empty DSN falls back to a local
// SQLite file so the server runs without any configuration.
func Init(dbURL string) (*gorm.DB, error) {
	if dbURL == "" {
		dbURL = "sqlite://wb.db"
		log.Println("DATABASE_URL not set, defaulting to 'sqlite://wb.db'")
	}

	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(dbURL, "postgres://"):
		dialector = postgres.Open(strings.TrimPrefix(dbURL, "postgres://"))
		log.Println("Connecting to PostgreSQL database...")
	case strings.HasPrefix(dbURL, "sqlite://"):
		dsn := strings.TrimPrefix(dbURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Println("Connecting to SQLite database at", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL %q: must start with 'postgres://' or 'sqlite://'", dbURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Be quiet by default
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Database connection established.")
	return db, nil
}
