package service

import (
	"fmt"

	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/rbac"
)

// Authorize allows admins and the record's creator.
func Authorize(actor *models.User, ownerID uint) error {
	if actor == nil {
		return fmt.Errorf("%w: no actor", ErrForbidden)
	}
	if actor.HasRole(rbac.RoleAdmin) || actor.ID == ownerID {
		return nil
	}
	return fmt.Errorf("%w: user %d does not own record of user %d", ErrForbidden, actor.ID, ownerID)
}
