package sqlite

import (
	"clipboard-history/internal/storage"
	"clipboard-history/pkg/types"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const pruneSQL = `DELETE FROM entries WHERE id NOT IN (
	SELECT id FROM entries ORDER BY created_at DESC LIMIT ?
)`

type SQLiteStorage struct {
	db       *gorm.DB
	path     string
	maxItems int
}

// New creates a new SQLite storage instance
func New(config storage.Config) (*SQLiteStorage, error) {
	if config.DBPath == "" {
		return nil, fmt.Errorf("%w: database path is required", storage.ErrStorage)
	}
	maxItems := config.MaxItems
	if maxItems <= 0 {
		maxItems = storage.DefaultMaxItems
	}

	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("%w: create storage directory: %w", storage.ErrStorage, err)
	}

	dsn := config.DBPath + "?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(slogWriter{}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", storage.ErrStorage, err)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&storage.EntryModel{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("%w: migrate schema: %w", storage.ErrStorage, err)
	}

	return &SQLiteStorage{
		db:       db,
		path:     config.DBPath,
		maxItems: maxItems,
	}, nil
}

// Upsert implements storage.Storage interface
func (s *SQLiteStorage) Upsert(ctx context.Context, entry types.Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorage, err)
	}
	model := storage.FromEntry(entry)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error; err != nil {
			return fmt.Errorf("upsert entry %s: %w", entry.ID, err)
		}
		if err := tx.Exec(pruneSQL, s.maxItems).Error; err != nil {
			return fmt.Errorf("prune entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorage, err)
	}
	return nil
}

// QueryRecent implements storage.Storage interface
func (s *SQLiteStorage) QueryRecent(ctx context.Context, limit int) ([]types.Entry, error) {
	query := s.db.WithContext(ctx).Model(&storage.EntryModel{}).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []storage.EntryModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("%w: list entries: %w", storage.ErrStorage, err)
	}

	entries := make([]types.Entry, 0, len(models))
	for i := range models {
		entry, err := models[i].ToEntry()
		if err != nil {
			slog.Warn("skipping unreadable row", "id", models[i].ID, "err", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete implements storage.Storage interface
func (s *SQLiteStorage) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&storage.EntryModel{}).Error; err != nil {
		return fmt.Errorf("%w: delete entries: %w", storage.ErrStorage, err)
	}
	return nil
}

// Clear implements storage.Storage interface
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&storage.EntryModel{}).Error; err != nil {
		return fmt.Errorf("%w: clear entries: %w", storage.ErrStorage, err)
	}
	return nil
}

// Stats implements storage.Storage interface
func (s *SQLiteStorage) Stats(ctx context.Context) (storage.Stats, error) {
	stats := storage.Stats{Path: s.path, MaxEntries: s.maxItems}
	if err := s.db.WithContext(ctx).Model(&storage.EntryModel{}).Count(&stats.Count).Error; err != nil {
		return stats, fmt.Errorf("%w: count entries: %w", storage.ErrStorage, err)
	}

	info, err := os.Stat(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return stats, fmt.Errorf("%w: stat database: %w", storage.ErrStorage, err)
	}
	if info != nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// Close implements storage.Storage interface
func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorage, err)
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// slogWriter routes gorm's logger output into slog.
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...interface{}) {
	slog.Warn(fmt.Sprintf(format, args...), "component", "gorm")
}
