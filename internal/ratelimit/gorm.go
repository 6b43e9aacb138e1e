package ratelimit

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/research_repository/internal/models"
)

// GormStore keeps counters in rate_limit_counters so every server process
// sees the same windows.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) Get(ctx context.Context, key string) (Counter, error) {
	var row models.RateLimitCounter
	if err := s.DB.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Counter{}, ErrNotFound
		}
		return Counter{}, err
	}
	return Counter{
		Attempts:        row.Attempts,
		WindowStartedAt: row.WindowStartedAt,
		Window:          time.Duration(row.WindowSeconds) * time.Second,
	}, nil
}

func (s *GormStore) Put(ctx context.Context, key string, c Counter) error {
	row := models.RateLimitCounter{
		Key:             key,
		Attempts:        c.Attempts,
		WindowStartedAt: c.WindowStartedAt.UTC(),
		WindowSeconds:   int(c.Window / time.Second),
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"attempts", "window_started_at", "window_seconds"}),
	}).Create(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Where("key = ?", key).Delete(&models.RateLimitCounter{}).Error
}
