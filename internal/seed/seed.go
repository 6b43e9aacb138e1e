// Package seed installs the built-in permission catalogue, the default roles
// and a first administrator. Running it twice changes nothing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/rbac"
	"github.com/Skotchmaster/research_repository/internal/repo"
)

type builtinRole struct {
	slug rbac.RoleSlug
	name string
	caps func(rbac.Capability) bool
}

var defaultRoles = []builtinRole{
	{rbac.RoleAdmin, "Administrator", func(rbac.Capability) bool { return true }},
	{rbac.RoleEditor, "Editor", func(c rbac.Capability) bool {
		m := c.Module()
		return m == "assets" || m == "clients"
	}},
	{rbac.RoleViewer, "Viewer", func(c rbac.Capability) bool { return c.Action() == "view" }},
}

func permissionName(c rbac.Capability) string {
	m, a := c.Module(), c.Action()
	if m == "" {
		return string(c)
	}
	return strings.ToUpper(m[:1]) + m[1:] + " " + a
}

func Run(ctx context.Context, r *repo.GormRepo, adminEmail, adminName string, l *slog.Logger) error {
	existing, err := r.ListPermissions(ctx)
	if err != nil {
		return fmt.Errorf("seed: list permissions: %w", err)
	}
	bySlug := make(map[string]uint, len(existing))
	for _, p := range existing {
		bySlug[p.Slug] = p.ID
	}
	for _, c := range rbac.BuiltinCapabilities {
		if _, ok := bySlug[string(c)]; ok {
			continue
		}
		p := &models.Permission{Name: permissionName(c), Slug: string(c), Module: c.Module()}
		if err := r.CreatePermission(ctx, p); err != nil {
			return fmt.Errorf("seed: permission %s: %w", c, err)
		}
		bySlug[p.Slug] = p.ID
		l.Info("seed_permission_created", "slug", p.Slug)
	}

	var adminRoleID uint
	for _, br := range defaultRoles {
		role, err := r.FindRoleBySlug(ctx, string(br.slug))
		if err == nil {
			if br.slug == rbac.RoleAdmin {
				adminRoleID = role.ID
			}
			continue
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("seed: role %s: %w", br.slug, err)
		}
		var ids []uint
		for _, c := range rbac.BuiltinCapabilities {
			if br.caps(c) {
				ids = append(ids, bySlug[string(c)])
			}
		}
		role = &models.Role{Name: br.name, Slug: string(br.slug)}
		if err := r.CreateRole(ctx, role, ids); err != nil {
			return fmt.Errorf("seed: role %s: %w", br.slug, err)
		}
		if br.slug == rbac.RoleAdmin {
			adminRoleID = role.ID
		}
		l.Info("seed_role_created", "slug", role.Slug, "permissions", len(ids))
	}

	if adminEmail == "" {
		return nil
	}
	_, err = r.FindUserByEmail(ctx, adminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("seed: admin lookup: %w", err)
	}
	u := &models.User{Name: adminName, Email: strings.ToLower(strings.TrimSpace(adminEmail)), Status: models.UserActive}
	if err := r.CreateUser(ctx, u, []uint{adminRoleID}); err != nil {
		return fmt.Errorf("seed: admin user: %w", err)
	}
	l.Info("seed_admin_created", "user_id", u.ID, "email", u.Email)
	return nil
}
