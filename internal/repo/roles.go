package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/research_repository/internal/models"
)

func (r *GormRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.DB.WithContext(ctx).Preload("Permissions").Order("id").Find(&roles).Error
	return roles, err
}

func (r *GormRepo) FindRole(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Preload("Permissions").First(&role, id).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *GormRepo) FindRoleBySlug(ctx context.Context, slug string) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Preload("Permissions").Where("slug = ?", slug).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *GormRepo) RoleSlugTaken(ctx context.Context, slug string, exceptID uint) (bool, error) {
	var n int64
	q := r.DB.WithContext(ctx).Model(&models.Role{}).Where("slug = ?", slug)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func replacePermissions(tx *gorm.DB, role *models.Role, permissionIDs []uint) error {
	if len(permissionIDs) == 0 {
		return tx.Model(role).Association("Permissions").Clear()
	}
	var perms []models.Permission
	if err := tx.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
		return err
	}
	return tx.Model(role).Association("Permissions").Replace(perms)
}

func (r *GormRepo) CreateRole(ctx context.Context, role *models.Role, permissionIDs []uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Permissions", "Users").Create(role).Error; err != nil {
			return err
		}
		return replacePermissions(tx, role, permissionIDs)
	})
	return translate(err)
}

// UpdateRole saves the scalar fields, then makes the permission set exactly
// permissionIDs.
func (r *GormRepo) UpdateRole(ctx context.Context, role *models.Role, permissionIDs []uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(role).Select("Name", "Slug", "Description").
			Updates(role).Error; err != nil {
			return err
		}
		return replacePermissions(tx, role, permissionIDs)
	})
	return translate(err)
}

// DeleteRole detaches users and permissions and removes the row in one
// transaction.
func (r *GormRepo) DeleteRole(ctx context.Context, role *models.Role) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(role).Association("Users").Clear(); err != nil {
			return err
		}
		if err := tx.Model(role).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(role).Error
	})
	return translate(err)
}

func (r *GormRepo) RolePermissionIDs(ctx context.Context, roleID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Table("permission_role").
		Where("role_id = ?", roleID).Order("permission_id").Pluck("permission_id", &ids).Error
	return ids, err
}

// RolesWithPermission lists the roles referencing permissionID.
func (r *GormRepo) RolesWithPermission(ctx context.Context, permissionID uint) ([]models.Role, error) {
	var roles []models.Role
	err := r.DB.WithContext(ctx).
		Joins("JOIN permission_role ON permission_role.role_id = roles.id").
		Where("permission_role.permission_id = ?", permissionID).
		Order("roles.id").
		Find(&roles).Error
	return roles, err
}
