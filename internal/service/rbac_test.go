package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/research_repository/internal/models"
)

func perms(t *testing.T, f *fixture, slugs ...string) []*models.Permission {
	t.Helper()
	out := make([]*models.Permission, 0, len(slugs))
	for _, s := range slugs {
		p, err := f.rbac.CreatePermission(context.Background(), PermissionInput{Name: s, Slug: s})
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func permSlugs(role *models.Role) []string {
	out := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		out = append(out, p.Slug)
	}
	return out
}

func TestUpdateRole_PermissionSetBecomesExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := perms(t, f, "assets.a", "assets.b", "assets.c", "assets.d")

	role, err := f.rbac.CreateRole(ctx, RoleInput{
		Name: "Admin", Slug: "admin", PermissionIDs: []uint{p[0].ID, p[1].ID, p[2].ID},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"assets.a", "assets.b", "assets.c"}, permSlugs(role))

	role, err = f.rbac.UpdateRole(ctx, role.ID, RoleInput{
		Name: "Admin", Slug: "admin", PermissionIDs: []uint{p[1].ID, p[2].ID, p[3].ID},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"assets.b", "assets.c", "assets.d"}, permSlugs(role))

	withA, err := f.repo.RolesWithPermission(ctx, p[0].ID)
	require.NoError(t, err)
	assert.Empty(t, withA)
}

func TestUpdateRole_EmptyPermissionsClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := perms(t, f, "assets.a")
	role, err := f.rbac.CreateRole(ctx, RoleInput{Name: "R", Slug: "r", PermissionIDs: []uint{p[0].ID}})
	require.NoError(t, err)

	role, err = f.rbac.UpdateRole(ctx, role.ID, RoleInput{Name: "R", Slug: "r"})
	require.NoError(t, err)
	assert.Empty(t, role.Permissions)
}

func TestCreateRole_ValidationBeforeWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := perms(t, f, "assets.a")

	_, err := f.rbac.CreateRole(ctx, RoleInput{
		Name: "Editors", Slug: "Bad Slug", PermissionIDs: []uint{p[0].ID, 999},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"The slug field format is invalid."}, ve.Fields["slug"])
	assert.Equal(t, []string{"The selected permission_ids is invalid."}, ve.Fields["permission_ids"])

	roles, err := f.rbac.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestCreateRole_DuplicateSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.rbac.CreateRole(ctx, RoleInput{Name: "A", Slug: "research-lead"})
	require.NoError(t, err)

	_, err = f.rbac.CreateRole(ctx, RoleInput{Name: "B", Slug: "research-lead"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"The slug has already been taken."}, ve.Fields["slug"])
}

func TestUpdateRole_KeepsOwnSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	role, err := f.rbac.CreateRole(ctx, RoleInput{Name: "A", Slug: "a"})
	require.NoError(t, err)

	_, err = f.rbac.UpdateRole(ctx, role.ID, RoleInput{Name: "A renamed", Slug: "a"})
	assert.NoError(t, err)
}

func TestDeleteRole_DetachesUsersAndPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := perms(t, f, "assets.view")
	role, err := f.rbac.CreateRole(ctx, RoleInput{Name: "Editor", Slug: "editor", PermissionIDs: []uint{p[0].ID}})
	require.NoError(t, err)

	u := &models.User{Name: "X", Email: "x@example.com", Status: models.UserActive}
	require.NoError(t, f.repo.CreateUser(ctx, u, []uint{role.ID}))

	require.NoError(t, f.rbac.DeleteRole(ctx, role.ID))

	got, err := f.repo.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Roles)

	refs, err := f.repo.RolesWithPermission(ctx, p[0].ID)
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = f.rbac.GetRole(ctx, role.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, f.events.types(TopicRoleEvents), "role_deleted")

	require.NoError(t, f.rbac.DeletePermission(ctx, p[0].ID))
}

func TestDeletePermission_RefusedWithCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := perms(t, f, "clients.view")
	for _, slug := range []string{"one", "two", "three"} {
		_, err := f.rbac.CreateRole(ctx, RoleInput{Name: slug, Slug: slug, PermissionIDs: []uint{p[0].ID}})
		require.NoError(t, err)
	}

	err := f.rbac.DeletePermission(ctx, p[0].ID)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(3), ce.Count)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.rbac.GetPermission(ctx, p[0].ID)
	assert.NoError(t, err)
}

func TestCreatePermission_ModuleFromSlugAndFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.rbac.CreatePermission(ctx, PermissionInput{Name: "Export", Slug: "reports.export"})
	require.NoError(t, err)
	assert.Equal(t, "reports", p.Module)

	_, err = f.rbac.CreatePermission(ctx, PermissionInput{Name: "Bad", Slug: "no-dot"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "slug")
}

func TestUserService_CreateUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.UserActive, "admin")
	editor, err := f.rbac.CreateRole(ctx, RoleInput{Name: "Editor", Slug: "editor"})
	require.NoError(t, err)

	ids := []uint{editor.ID}
	u, err := f.users.Create(ctx, UserInput{Name: "Bo", Email: "Bo@Example.com", RoleIDs: &ids})
	require.NoError(t, err)
	assert.Equal(t, "bo@example.com", u.Email)
	assert.Equal(t, models.UserActive, u.Status)
	assert.True(t, u.HasRole("editor"))

	_, err = f.users.Create(ctx, UserInput{Name: "Dup", Email: "bo@example.com"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"The email has already been taken."}, ve.Fields["email"])

	none := []uint{}
	u, err = f.users.Update(ctx, u.ID, UserInput{Name: "Bo", Email: "bo@example.com", Status: models.UserInactive, RoleIDs: &none})
	require.NoError(t, err)
	assert.False(t, u.IsActive())
	assert.Empty(t, u.Roles)

	assert.ErrorIs(t, f.users.Delete(ctx, admin, admin.ID), ErrForbidden)
	require.NoError(t, f.users.Delete(ctx, admin, u.ID))
	_, err = f.users.Get(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
