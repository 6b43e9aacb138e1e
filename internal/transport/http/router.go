package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/research_repository/internal/handlers"
	authmw "github.com/Skotchmaster/research_repository/internal/middleware/auth"
	"github.com/Skotchmaster/research_repository/internal/middleware/csrf"
	"github.com/Skotchmaster/research_repository/internal/middleware/throttle"
	"github.com/Skotchmaster/research_repository/internal/rbac"
	"github.com/Skotchmaster/research_repository/internal/session"
	loggingmw "github.com/Skotchmaster/research_repository/pkg/middleware/logging"
)

type Deps struct {
	DB       *gorm.DB
	Logger   *slog.Logger
	Sessions *session.Manager
	Throttle *throttle.PerIP
	CSRF     csrf.Config

	AuthHandler       *handlers.AuthHandler
	RBACHandler       *handlers.RBACHandler
	UserHandler       *handlers.UserHandler
	AssetHandler      *handlers.AssetHandler
	ClientHandler     *handlers.ClientHandler
	RepositoryHandler *handlers.RepositoryHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(d.Logger))
	e.Use(csrf.Middleware(d.CSRF))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	auth := e.Group("/auth")
	if d.Throttle != nil {
		auth.Use(d.Throttle.Middleware())
	}
	auth.POST("/otp/request", d.AuthHandler.RequestOTP)
	auth.POST("/otp/verify", d.AuthHandler.VerifyOTP)
	auth.POST("/login", d.AuthHandler.Login)

	repository := e.Group("/repository")

	repository.GET("/assets", d.RepositoryHandler.Browse)
	repository.GET("/assets/:id", d.RepositoryHandler.Show)
	repository.GET("/assets/:id/download", d.RepositoryHandler.Download)
	repository.GET("/search", d.RepositoryHandler.Search)

	authed := e.Group("", authmw.RequireLogin(d.Sessions))

	authed.POST("/auth/logout", d.AuthHandler.Logout)
	authed.GET("/me", d.AuthHandler.Me)

	authed.GET("/assets", d.AssetHandler.List)
	authed.POST("/assets", d.AssetHandler.Create)
	authed.GET("/assets/:id", d.AssetHandler.Get)
	authed.PUT("/assets/:id", d.AssetHandler.Update)
	authed.DELETE("/assets/:id", d.AssetHandler.Delete)
	authed.POST("/assets/:id/upload-url", d.AssetHandler.UploadURL)

	authed.GET("/clients", d.ClientHandler.List)
	authed.POST("/clients", d.ClientHandler.Create)
	authed.GET("/clients/:id", d.ClientHandler.Get)
	authed.PUT("/clients/:id", d.ClientHandler.Update)
	authed.DELETE("/clients/:id", d.ClientHandler.Delete)

	admin := authed.Group("", authmw.RequireRole(rbac.RoleAdmin))

	admin.GET("/users", d.UserHandler.List)
	admin.POST("/users", d.UserHandler.Create)
	admin.GET("/users/:id", d.UserHandler.Get)
	admin.PUT("/users/:id", d.UserHandler.Update)
	admin.DELETE("/users/:id", d.UserHandler.Delete)

	admin.GET("/roles", d.RBACHandler.ListRoles)
	admin.POST("/roles", d.RBACHandler.CreateRole)
	admin.GET("/roles/:id", d.RBACHandler.GetRole)
	admin.PUT("/roles/:id", d.RBACHandler.UpdateRole)
	admin.DELETE("/roles/:id", d.RBACHandler.DeleteRole)

	admin.GET("/permissions", d.RBACHandler.ListPermissions)
	admin.POST("/permissions", d.RBACHandler.CreatePermission)
	admin.GET("/permissions/:id", d.RBACHandler.GetPermission)
	admin.PUT("/permissions/:id", d.RBACHandler.UpdatePermission)
	admin.DELETE("/permissions/:id", d.RBACHandler.DeletePermission)
}
