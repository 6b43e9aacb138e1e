package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/logging"
	authmw "github.com/Skotchmaster/research_repository/internal/middleware/auth"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/service"
)

type AssetHandler struct {
	Assets *service.AssetService
}

// typeFilter reads the optional ?type= filter. An unknown type is a field
// error rather than an empty page.
func typeFilter(c echo.Context) (models.AssetType, error) {
	typ := models.AssetType(c.QueryParam("type"))
	if typ != "" && !typ.Valid() {
		return "", &service.FieldError{Field: "type", Message: "The selected type is invalid."}
	}
	return typ, nil
}

func (h *AssetHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "assets_list")

	typ, err := typeFilter(c)
	if err != nil {
		return fail(c, l, "assets_list_failed", err)
	}
	p, page, size := pageParams(c)
	assets, total, err := h.Assets.List(ctx, typ, p)
	if err != nil {
		return fail(c, l, "assets_list_failed", err)
	}
	return c.JSON(http.StatusOK, listResponse[models.Asset]{Data: assets, Total: total, Page: page, Size: size})
}

func (h *AssetHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "assets_get")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	a, err := h.Assets.Get(ctx, id)
	if err != nil {
		return fail(c, l, "assets_get_failed", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AssetHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "assets_create")

	var in service.AssetInput
	if err := bindBody(c, l, "assets_create_error", &in); err != nil {
		return err
	}
	a, err := h.Assets.Create(ctx, authmw.CurrentUser(c), in)
	if err != nil {
		return fail(c, l, "assets_create_failed", err)
	}

	l.Info("assets_create_success", "status", 201, "asset_id", a.ID)
	return c.JSON(http.StatusCreated, a)
}

func (h *AssetHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "assets_update")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in service.AssetInput
	if err := bindBody(c, l, "assets_update_error", &in); err != nil {
		return err
	}
	a, err := h.Assets.Update(ctx, authmw.CurrentUser(c), id, in)
	if err != nil {
		return fail(c, l, "assets_update_failed", err)
	}

	l.Info("assets_update_success", "status", 200, "asset_id", a.ID)
	return c.JSON(http.StatusOK, a)
}

func (h *AssetHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "assets_delete")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.Assets.Delete(ctx, authmw.CurrentUser(c), id); err != nil {
		return fail(c, l, "assets_delete_failed", err)
	}

	l.Info("assets_delete_success", "status", 204, "asset_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *AssetHandler) UploadURL(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "assets_upload_url")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	up, err := h.Assets.UploadURL(ctx, authmw.CurrentUser(c), id)
	if err != nil {
		return fail(c, l, "assets_upload_url_failed", err)
	}

	l.Info("assets_upload_url_success", "status", 200, "asset_id", id, "key", up.Key)
	return c.JSON(http.StatusOK, up)
}
