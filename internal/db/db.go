package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

// openSessionIndex makes a second open session for the same actor fail at
// insert time instead of relying on a read-then-write check.
const openSessionIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_open_per_actor
ON sessions(actor_id) WHERE is_open`

// Store is a store.SessionStore backed by gorm and sqlite
type Store struct {
	db *gorm.DB
}

// Open sets up the database connection and runs migrations
func Open(dbPath string) (*Store, error) {
	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// runMigrations creates/updates the database schema
func (s *Store) runMigrations() error {
	if err := s.db.AutoMigrate(
		&models.Session{},
		&models.TrackingPoint{},
	); err != nil {
		return err
	}
	return s.db.Exec(openSessionIndex).Error
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
