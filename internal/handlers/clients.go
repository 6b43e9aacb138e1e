package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/logging"
	authmw "github.com/Skotchmaster/research_repository/internal/middleware/auth"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/service"
)

type ClientHandler struct {
	Clients *service.ClientService
}

func (h *ClientHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients_list")

	p, page, size := pageParams(c)
	clients, total, err := h.Clients.List(ctx, p)
	if err != nil {
		return fail(c, l, "clients_list_failed", err)
	}
	return c.JSON(http.StatusOK, listResponse[models.Client]{Data: clients, Total: total, Page: page, Size: size})
}

func (h *ClientHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients_get")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	cl, err := h.Clients.Get(ctx, id)
	if err != nil {
		return fail(c, l, "clients_get_failed", err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *ClientHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients_create")

	var in service.ClientInput
	if err := bindBody(c, l, "clients_create_error", &in); err != nil {
		return err
	}
	cl, err := h.Clients.Create(ctx, authmw.CurrentUser(c), in)
	if err != nil {
		return fail(c, l, "clients_create_failed", err)
	}

	l.Info("clients_create_success", "status", 201, "client_id", cl.ID)
	return c.JSON(http.StatusCreated, cl)
}

func (h *ClientHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients_update")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in service.ClientInput
	if err := bindBody(c, l, "clients_update_error", &in); err != nil {
		return err
	}
	cl, err := h.Clients.Update(ctx, authmw.CurrentUser(c), id, in)
	if err != nil {
		return fail(c, l, "clients_update_failed", err)
	}

	l.Info("clients_update_success", "status", 200, "client_id", cl.ID)
	return c.JSON(http.StatusOK, cl)
}

func (h *ClientHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients_delete")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.Clients.Delete(ctx, authmw.CurrentUser(c), id); err != nil {
		return fail(c, l, "clients_delete_failed", err)
	}

	l.Info("clients_delete_success", "status", 204, "client_id", id)
	return c.NoContent(http.StatusNoContent)
}
