package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry kv_entries 表，MySQL 后端的键值映射
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:191;column:k"`
	Value     []byte `gorm:"type:longblob;column:v"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

type MySQLStore struct {
	DB *gorm.DB
}

func NewMySQLStore(db *gorm.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

func (s *MySQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry KVEntry
	err := s.DB.WithContext(ctx).First(&entry, "k = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *MySQLStore) Set(ctx context.Context, key string, value []byte) error {
	entry := KVEntry{Key: key, Value: value}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "k"}},
			DoUpdates: clause.AssignmentColumns([]string{"v", "updated_at"}),
		}).
		Create(&entry).Error
}

func (s *MySQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Delete(&KVEntry{}, "k IN ?", keys).Error
}

func (s *MySQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.DB.WithContext(ctx).
		Model(&KVEntry{}).
		Where("k LIKE ?", prefix+"%").
		Pluck("k", &keys).Error
	return keys, err
}
