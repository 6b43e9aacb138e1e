package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/research_repository/internal/models"
)

// InUseError is returned when a permission is still attached to roles.
type InUseError struct {
	Count int64
}

func (e *InUseError) Error() string { return "permission in use" }

func (r *GormRepo) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.DB.WithContext(ctx).Order("module").Order("slug").Find(&perms).Error
	return perms, err
}

func (r *GormRepo) FindPermission(ctx context.Context, id uint) (*models.Permission, error) {
	var p models.Permission
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *GormRepo) CountPermissions(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Permission{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

func (r *GormRepo) PermissionSlugTaken(ctx context.Context, slug string, exceptID uint) (bool, error) {
	var n int64
	q := r.DB.WithContext(ctx).Model(&models.Permission{}).Where("slug = ?", slug)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) CreatePermission(ctx context.Context, p *models.Permission) error {
	return translate(r.DB.WithContext(ctx).Omit("Roles").Create(p).Error)
}

func (r *GormRepo) UpdatePermission(ctx context.Context, p *models.Permission) error {
	return translate(r.DB.WithContext(ctx).Model(p).
		Select("Name", "Slug", "Module", "Description").Updates(p).Error)
}

// DeletePermission refuses with *InUseError while any role references p.
func (r *GormRepo) DeletePermission(ctx context.Context, p *models.Permission) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Table("permission_role").Where("permission_id = ?", p.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{Count: n}
		}
		return tx.Delete(p).Error
	})
	return translate(err)
}
