package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/logging"
	authmw "github.com/Skotchmaster/research_repository/internal/middleware/auth"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/service"
)

type UserHandler struct {
	Users *service.UserService
}

func (h *UserHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_list")

	p, page, size := pageParams(c)
	users, total, err := h.Users.List(ctx, p)
	if err != nil {
		return fail(c, l, "users_list_failed", err)
	}
	return c.JSON(http.StatusOK, listResponse[models.User]{Data: users, Total: total, Page: page, Size: size})
}

func (h *UserHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_get")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.Get(ctx, id)
	if err != nil {
		return fail(c, l, "users_get_failed", err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_create")

	var in service.UserInput
	if err := bindBody(c, l, "users_create_error", &in); err != nil {
		return err
	}
	u, err := h.Users.Create(ctx, in)
	if err != nil {
		return fail(c, l, "users_create_failed", err)
	}

	l.Info("users_create_success", "status", 201, "user_id", u.ID)
	return c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in service.UserInput
	if err := bindBody(c, l, "users_update_error", &in); err != nil {
		return err
	}
	u, err := h.Users.Update(ctx, id, in)
	if err != nil {
		return fail(c, l, "users_update_failed", err)
	}

	l.Info("users_update_success", "status", 200, "user_id", u.ID)
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_delete")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.Users.Delete(ctx, authmw.CurrentUser(c), id); err != nil {
		return fail(c, l, "users_delete_failed", err)
	}

	l.Info("users_delete_success", "status", 204, "user_id", id)
	return c.NoContent(http.StatusNoContent)
}
