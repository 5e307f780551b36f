package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeyValue is a single string entry of the durable key-value store.
type KeyValue struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `json:"value"`
}

// KVRepository defines decoupled operations for key-value persistence.
// Get returns an empty string when the key is absent.
type KVRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// gormKVRepo is a GORM-backed implementation of KVRepository.
// Use constructor NewKVRepository to obtain an instance.
type gormKVRepo struct{ db *gorm.DB }

// NewKVRepository creates a KVRepository. Accepts *gorm.DB to avoid global access.
func NewKVRepository(db *gorm.DB) KVRepository { return &gormKVRepo{db: db} }

func (r *gormKVRepo) Get(ctx context.Context, key string) (string, error) {
	if r.db == nil {
		return "", fmt.Errorf("repository not initialized")
	}
	var kv KeyValue
	err := r.db.WithContext(ctx).First(&kv, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return kv.Value, nil
}

func (r *gormKVRepo) Set(ctx context.Context, key, value string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&KeyValue{Key: key, Value: value}).Error
}

func (r *gormKVRepo) Remove(ctx context.Context, key string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Delete(&KeyValue{}, "key = ?", key).Error
}
