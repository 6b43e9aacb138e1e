package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/research_repository/internal/models"
)

func (r *GormRepo) CreateClient(ctx context.Context, c *models.Client) error {
	return translate(r.DB.WithContext(ctx).Create(c).Error)
}

func (r *GormRepo) UpdateClient(ctx context.Context, c *models.Client) error {
	return translate(r.DB.WithContext(ctx).Model(c).
		Select("Name", "Organization", "Email", "Phone").Updates(c).Error)
}

// DeleteClient unlinks the client's assets before removing it.
func (r *GormRepo) DeleteClient(ctx context.Context, c *models.Client) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Asset{}).Where("client_id = ?", c.ID).
			Update("client_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(c).Error
	})
	return translate(err)
}

func (r *GormRepo) FindClient(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *GormRepo) ListClients(ctx context.Context, p Page) ([]models.Client, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Client{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var clients []models.Client
	err := paginate(r.DB.WithContext(ctx).Order("name"), p).Find(&clients).Error
	return clients, total, err
}
