package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/logging"
	"github.com/Skotchmaster/research_repository/internal/service"
)

type RBACHandler struct {
	RBAC *service.RBACService
}

func (h *RBACHandler) ListRoles(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "roles_list")

	roles, err := h.RBAC.ListRoles(ctx)
	if err != nil {
		return fail(c, l, "roles_list_failed", err)
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *RBACHandler) GetRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "roles_get")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	role, err := h.RBAC.GetRole(ctx, id)
	if err != nil {
		return fail(c, l, "roles_get_failed", err)
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RBACHandler) CreateRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "roles_create")

	var in service.RoleInput
	if err := bindBody(c, l, "roles_create_error", &in); err != nil {
		return err
	}
	role, err := h.RBAC.CreateRole(ctx, in)
	if err != nil {
		return fail(c, l, "roles_create_failed", err)
	}

	l.Info("roles_create_success", "status", 201, "role_id", role.ID)
	return c.JSON(http.StatusCreated, role)
}

func (h *RBACHandler) UpdateRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "roles_update")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in service.RoleInput
	if err := bindBody(c, l, "roles_update_error", &in); err != nil {
		return err
	}
	role, err := h.RBAC.UpdateRole(ctx, id, in)
	if err != nil {
		return fail(c, l, "roles_update_failed", err)
	}

	l.Info("roles_update_success", "status", 200, "role_id", role.ID)
	return c.JSON(http.StatusOK, role)
}

func (h *RBACHandler) DeleteRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "roles_delete")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.RBAC.DeleteRole(ctx, id); err != nil {
		return fail(c, l, "roles_delete_failed", err)
	}

	l.Info("roles_delete_success", "status", 204, "role_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *RBACHandler) ListPermissions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "permissions_list")

	perms, err := h.RBAC.ListPermissions(ctx)
	if err != nil {
		return fail(c, l, "permissions_list_failed", err)
	}
	return c.JSON(http.StatusOK, perms)
}

func (h *RBACHandler) GetPermission(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "permissions_get")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	perm, err := h.RBAC.GetPermission(ctx, id)
	if err != nil {
		return fail(c, l, "permissions_get_failed", err)
	}
	return c.JSON(http.StatusOK, perm)
}

func (h *RBACHandler) CreatePermission(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "permissions_create")

	var in service.PermissionInput
	if err := bindBody(c, l, "permissions_create_error", &in); err != nil {
		return err
	}
	perm, err := h.RBAC.CreatePermission(ctx, in)
	if err != nil {
		return fail(c, l, "permissions_create_failed", err)
	}

	l.Info("permissions_create_success", "status", 201, "permission_id", perm.ID)
	return c.JSON(http.StatusCreated, perm)
}

func (h *RBACHandler) UpdatePermission(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "permissions_update")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in service.PermissionInput
	if err := bindBody(c, l, "permissions_update_error", &in); err != nil {
		return err
	}
	perm, err := h.RBAC.UpdatePermission(ctx, id, in)
	if err != nil {
		return fail(c, l, "permissions_update_failed", err)
	}

	l.Info("permissions_update_success", "status", 200, "permission_id", perm.ID)
	return c.JSON(http.StatusOK, perm)
}

// DeletePermission answers 409 with the number of roles still holding it.
func (h *RBACHandler) DeletePermission(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "permissions_delete")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.RBAC.DeletePermission(ctx, id); err != nil {
		return fail(c, l, "permissions_delete_failed", err)
	}

	l.Info("permissions_delete_success", "status", 204, "permission_id", id)
	return c.NoContent(http.StatusNoContent)
}
