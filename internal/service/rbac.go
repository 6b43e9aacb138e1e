package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/rbac"
	"github.com/Skotchmaster/research_repository/internal/repo"
)

type RoleInput struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	PermissionIDs []uint `json:"permission_ids"`
}

type PermissionInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Module      string `json:"module"`
	Description string `json:"description"`
}

type RBACService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}

// validateRole runs every check before anything is written.
func (s *RBACService) validateRole(ctx context.Context, in *RoleInput, exceptID uint) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.PermissionIDs = dedupe(in.PermissionIDs)

	v := &ValidationError{}
	requireString(v, "name", in.Name)
	requireString(v, "slug", in.Slug)
	if in.Slug != "" && !rbac.ValidRoleSlug(in.Slug) {
		v.Add("slug", fmt.Sprintf(msgFormat, "slug"))
	}
	if _, bad := v.Fields["slug"]; !bad {
		taken, err := s.Repo.RoleSlugTaken(ctx, in.Slug, exceptID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("slug", fmt.Sprintf(msgTaken, "slug"))
		}
	}
	n, err := s.Repo.CountPermissions(ctx, in.PermissionIDs)
	if err != nil {
		return err
	}
	if n != int64(len(in.PermissionIDs)) {
		v.Add("permission_ids", fmt.Sprintf(msgInvalid, "permission_ids"))
	}
	return v.OrNil()
}

func (s *RBACService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.Repo.ListRoles(ctx)
}

func (s *RBACService) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	role, err := s.Repo.FindRole(ctx, id)
	if err != nil {
		return nil, notFound(err, "role", id)
	}
	return role, nil
}

func (s *RBACService) CreateRole(ctx context.Context, in RoleInput) (*models.Role, error) {
	if err := s.validateRole(ctx, &in, 0); err != nil {
		return nil, err
	}
	role := &models.Role{Name: in.Name, Slug: in.Slug, Description: in.Description}
	if err := s.Repo.CreateRole(ctx, role, in.PermissionIDs); err != nil {
		return nil, slugConflict(err)
	}
	publish(ctx, s.Events, TopicRoleEvents, role.ID, map[string]any{
		"type": "role_created", "roleID": role.ID, "slug": role.Slug,
	})
	return s.Repo.FindRole(ctx, role.ID)
}

// UpdateRole leaves the role holding exactly in.PermissionIDs.
func (s *RBACService) UpdateRole(ctx context.Context, id uint, in RoleInput) (*models.Role, error) {
	role, err := s.Repo.FindRole(ctx, id)
	if err != nil {
		return nil, notFound(err, "role", id)
	}
	if err := s.validateRole(ctx, &in, role.ID); err != nil {
		return nil, err
	}
	role.Name, role.Slug, role.Description = in.Name, in.Slug, in.Description
	if err := s.Repo.UpdateRole(ctx, role, in.PermissionIDs); err != nil {
		return nil, slugConflict(err)
	}
	publish(ctx, s.Events, TopicRoleEvents, role.ID, map[string]any{
		"type": "role_updated", "roleID": role.ID, "permissionIDs": in.PermissionIDs,
	})
	return s.Repo.FindRole(ctx, role.ID)
}

func (s *RBACService) DeleteRole(ctx context.Context, id uint) error {
	role, err := s.Repo.FindRole(ctx, id)
	if err != nil {
		return notFound(err, "role", id)
	}
	if err := s.Repo.DeleteRole(ctx, role); err != nil {
		return err
	}
	publish(ctx, s.Events, TopicRoleEvents, role.ID, map[string]any{
		"type": "role_deleted", "roleID": role.ID, "slug": role.Slug,
	})
	return nil
}

func (s *RBACService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.Repo.ListPermissions(ctx)
}

func (s *RBACService) GetPermission(ctx context.Context, id uint) (*models.Permission, error) {
	p, err := s.Repo.FindPermission(ctx, id)
	if err != nil {
		return nil, notFound(err, "permission", id)
	}
	return p, nil
}

func (s *RBACService) validatePermission(ctx context.Context, in *PermissionInput, exceptID uint) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Module = strings.TrimSpace(in.Module)

	v := &ValidationError{}
	requireString(v, "name", in.Name)
	requireString(v, "slug", in.Slug)
	if in.Slug != "" && !rbac.ValidPermissionSlug(in.Slug) {
		v.Add("slug", fmt.Sprintf(msgFormat, "slug"))
	}
	if _, bad := v.Fields["slug"]; !bad {
		if in.Module == "" {
			in.Module = rbac.Capability(in.Slug).Module()
		}
		taken, err := s.Repo.PermissionSlugTaken(ctx, in.Slug, exceptID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("slug", fmt.Sprintf(msgTaken, "slug"))
		}
	}
	if len(in.Module) > maxStringField {
		v.Add("module", fmt.Sprintf(msgTooLong, "module", maxStringField))
	}
	return v.OrNil()
}

func (s *RBACService) CreatePermission(ctx context.Context, in PermissionInput) (*models.Permission, error) {
	if err := s.validatePermission(ctx, &in, 0); err != nil {
		return nil, err
	}
	p := &models.Permission{Name: in.Name, Slug: in.Slug, Module: in.Module, Description: in.Description}
	if err := s.Repo.CreatePermission(ctx, p); err != nil {
		return nil, slugConflict(err)
	}
	return p, nil
}

func (s *RBACService) UpdatePermission(ctx context.Context, id uint, in PermissionInput) (*models.Permission, error) {
	p, err := s.Repo.FindPermission(ctx, id)
	if err != nil {
		return nil, notFound(err, "permission", id)
	}
	if err := s.validatePermission(ctx, &in, p.ID); err != nil {
		return nil, err
	}
	p.Name, p.Slug, p.Module, p.Description = in.Name, in.Slug, in.Module, in.Description
	if err := s.Repo.UpdatePermission(ctx, p); err != nil {
		return nil, slugConflict(err)
	}
	return p, nil
}

// DeletePermission is refused with *ConflictError while roles reference it.
func (s *RBACService) DeletePermission(ctx context.Context, id uint) error {
	p, err := s.Repo.FindPermission(ctx, id)
	if err != nil {
		return notFound(err, "permission", id)
	}
	if err := s.Repo.DeletePermission(ctx, p); err != nil {
		var inUse *repo.InUseError
		if errors.As(err, &inUse) {
			return &ConflictError{Resource: "permission", Count: inUse.Count}
		}
		return err
	}
	return nil
}

// slugConflict covers the race where a slug is taken between validation and
// insert.
func slugConflict(err error) error {
	if errors.Is(err, repo.ErrDuplicate) {
		return &FieldError{Field: "slug", Message: fmt.Sprintf(msgTaken, "slug")}
	}
	return err
}
