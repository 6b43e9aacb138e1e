package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/logging"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/service"
)

// RepositoryHandler serves the public, unauthenticated side of the
// repository. Unpublished assets are invisible here.
type RepositoryHandler struct {
	Assets *service.AssetService
}

func (h *RepositoryHandler) Browse(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "repository_browse")

	typ, err := typeFilter(c)
	if err != nil {
		return fail(c, l, "repository_browse_failed", err)
	}
	p, page, size := pageParams(c)
	assets, total, err := h.Assets.Browse(ctx, typ, p)
	if err != nil {
		return fail(c, l, "repository_browse_failed", err)
	}
	return c.JSON(http.StatusOK, listResponse[models.Asset]{Data: assets, Total: total, Page: page, Size: size})
}

func (h *RepositoryHandler) Show(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "repository_show")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	a, err := h.Assets.GetPublished(ctx, id)
	if err != nil {
		return fail(c, l, "repository_show_failed", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *RepositoryHandler) Download(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "repository_download")

	id, err := paramID(c)
	if err != nil {
		return err
	}
	url, err := h.Assets.DownloadURL(ctx, id)
	if err != nil {
		return fail(c, l, "repository_download_failed", err)
	}

	l.Info("repository_download_success", "status", 302, "asset_id", id)
	return c.Redirect(http.StatusFound, url)
}

func (h *RepositoryHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "repository_search")

	p, page, size := pageParams(c)
	res, err := h.Assets.Search(ctx, c.QueryParam("q"), p.Offset, p.Limit)
	if err != nil {
		return fail(c, l, "repository_search_failed", err)
	}

	l.Info("repository_search_success", "status", 200, "total", res.Total, "hits", len(res.Hits))
	return c.JSON(http.StatusOK, echo.Map{"total": res.Total, "hits": res.Hits, "page": page, "size": size})
}
