package kv

import (
	"context"
	"errors"
	"fmt"

	"spine-analyzer-go/internal/database"
	"spine-analyzer-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormArea хранилище в таблице kv_entries через gorm (PostgreSQL)
type GormArea struct {
	db *gorm.DB
}

func NewGormArea(db *gorm.DB) *GormArea {
	return &GormArea{db: db}
}

func (g *GormArea) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry model.KVEntry
	err := g.db.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return entry.Payload, true, nil
}

func (g *GormArea) Set(ctx context.Context, key string, value []byte) error {
	entry := &model.KVEntry{Key: key, Payload: value}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (g *GormArea) Remove(ctx context.Context, key string) error {
	if err := g.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&model.KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

func (g *GormArea) Ping(ctx context.Context) error {
	return database.HealthCheck(ctx, g.db)
}

func (g *GormArea) Close() error {
	return database.Close(g.db)
}
