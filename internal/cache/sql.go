package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type entry struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

func (entry) TableName() string { return "kv_entries" }

// SQLCache stores keys in a single kv_entries table of a SQL database.
type SQLCache struct {
	db *gorm.DB
}

// NewSQLCache opens the database behind dialector and migrates the
// kv_entries table.
func NewSQLCache(ctx context.Context, dialector gorm.Dialector) (*SQLCache, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrating kv_entries: %w", err)
	}

	return &SQLCache{db: db}, nil
}

func (sc *SQLCache) Get(ctx context.Context, key string) (string, error) {
	var e entry
	err := sc.db.WithContext(ctx).Where("key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", key, err)
	}
	return e.Value, nil
}

func (sc *SQLCache) Set(ctx context.Context, key string, value string) error {
	e := entry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := sc.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

func (sc *SQLCache) Del(ctx context.Context, key string) error {
	if err := sc.db.WithContext(ctx).Where("key = ?", key).Delete(&entry{}).Error; err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

func (sc *SQLCache) GetJSON(ctx context.Context, key string, value any) error {
	return getJSON(ctx, sc, key, value)
}

func (sc *SQLCache) SetJSON(ctx context.Context, key string, value any) error {
	return setJSON(ctx, sc, key, value)
}

// Close closes the underlying database connection pool.
func (sc *SQLCache) Close() error {
	sqlDB, err := sc.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
