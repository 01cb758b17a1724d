package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists reconciliation passes in SQLite.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the journal database at path and migrates
// its schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.AutoMigrate(&Pass{}); err != nil {
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Insert stores one pass.
func (s *Store) Insert(p *Pass) error {
	result := s.db.Create(p)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert pass")
	}
	return nil
}

// Recent returns up to limit passes, newest first.
func (s *Store) Recent(limit int) ([]*Pass, error) {
	var passes []*Pass
	result := s.db.Order("started_at DESC").Limit(limit).Find(&passes)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query passes")
	}
	return passes, nil
}

// CountByOutcome returns the number of stored passes per outcome.
func (s *Store) CountByOutcome() (map[string]int64, error) {
	var rows []struct {
		Outcome string
		Count   int64
	}
	result := s.db.Model(&Pass{}).
		Select("outcome, COUNT(*) as count").
		Group("outcome").
		Scan(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to count passes")
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Outcome] = r.Count
	}
	return out, nil
}

// PruneBefore deletes passes that started before cutoff and returns how many
// were removed.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	result := s.db.Where("started_at < ?", cutoff).Delete(&Pass{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to prune passes")
	}
	return result.RowsAffected, nil
}
