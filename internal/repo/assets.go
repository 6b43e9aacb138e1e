package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/research_repository/internal/models"
)

type AssetFilter struct {
	PublishedOnly bool
	Type          models.AssetType
}

func (r *GormRepo) CreateAsset(ctx context.Context, a *models.Asset) error {
	return translate(r.DB.WithContext(ctx).Omit("Client").Create(a).Error)
}

func (r *GormRepo) UpdateAsset(ctx context.Context, a *models.Asset) error {
	return translate(r.DB.WithContext(ctx).Model(a).
		Select("Title", "Type", "Summary", "Authors", "PublishedAt", "Published", "FileKey", "ClientID").
		Updates(a).Error)
}

func (r *GormRepo) DeleteAsset(ctx context.Context, a *models.Asset) error {
	return translate(r.DB.WithContext(ctx).Delete(a).Error)
}

func (r *GormRepo) FindAsset(ctx context.Context, id uint) (*models.Asset, error) {
	var a models.Asset
	if err := r.DB.WithContext(ctx).Preload("Client").First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *GormRepo) ListAssets(ctx context.Context, f AssetFilter, p Page) ([]models.Asset, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Asset{})
	if f.PublishedOnly {
		q = q.Where("published = ?", true)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var assets []models.Asset
	err := paginate(q.Preload("Client").Order("id DESC"), p).Find(&assets).Error
	return assets, total, err
}

func (r *GormRepo) FindAssetsByIDs(ctx context.Context, ids []uint, publishedOnly bool) ([]models.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.DB.WithContext(ctx).Where("id IN ?", ids)
	if publishedOnly {
		q = q.Where("published = ?", true)
	}
	var assets []models.Asset
	err := q.Find(&assets).Error
	return assets, err
}
