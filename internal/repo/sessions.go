package repo

import (
	"context"

	"github.com/Skotchmaster/research_repository/internal/models"
)

func (r *GormRepo) CreateSession(ctx context.Context, s *models.Session) error {
	return translate(r.DB.WithContext(ctx).Create(s).Error)
}

func (r *GormRepo) FindSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *GormRepo) RevokeSession(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).Update("revoked", true).Error
}

func (r *GormRepo) RevokeUserSessions(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND revoked = ?", userID, false).Update("revoked", true).Error
}
