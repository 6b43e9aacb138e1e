package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/research_repository/internal/models"
)

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Preload("Roles").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *GormRepo) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, p Page) ([]models.User, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := paginate(r.DB.WithContext(ctx).Preload("Roles").Order("id"), p).Find(&users).Error
	return users, total, err
}

func (r *GormRepo) CountRoles(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Role{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

func replaceRoles(tx *gorm.DB, u *models.User, roleIDs []uint) error {
	if len(roleIDs) == 0 {
		return tx.Model(u).Association("Roles").Clear()
	}
	var roles []models.Role
	if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
		return err
	}
	return tx.Model(u).Association("Roles").Replace(roles)
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User, roleIDs []uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Roles").Create(u).Error; err != nil {
			return err
		}
		return replaceRoles(tx, u, roleIDs)
	})
	return translate(err)
}

// UpdateUser saves scalar fields and, when roleIDs is non-nil, makes the
// user's role set exactly roleIDs.
func (r *GormRepo) UpdateUser(ctx context.Context, u *models.User, roleIDs *[]uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(u).Select("Name", "Email", "Status", "PasswordHash").
			Updates(u).Error; err != nil {
			return err
		}
		if roleIDs == nil {
			return nil
		}
		return replaceRoles(tx, u, *roleIDs)
	})
	return translate(err)
}

func (r *GormRepo) DeleteUser(ctx context.Context, u *models.User) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(u).Association("Roles").Clear(); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(u).Error
	})
	return translate(err)
}

func (r *GormRepo) UserRoleIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Table("role_user").
		Where("user_id = ?", userID).Order("role_id").Pluck("role_id", &ids).Error
	return ids, err
}
