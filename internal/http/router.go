package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/http/handlers"
	"github.com/postertrack/backend/internal/middleware"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Companies *handlers.CompanyHandler
	Users     *handlers.UserHandler
	Campaigns *handlers.CampaignHandler
	Images    *handlers.ImageHandler
	Audit     *handlers.AuditHandler
	WSHub     *handlers.WSHub
}

// NewApp builds the fiber app with the error handler and a body limit large enough
// for one upload plus its form fields.
func NewApp(cfg *config.Config, log *zap.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "poster-campaigns-api",
		ErrorHandler: middleware.ErrorHandler(log),
		BodyLimit:    int(cfg.MaxUploadBytes) + 1<<20,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	})
}

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	sessions middleware.SessionValidator,
	h Handlers,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, "api", cfg.RateLimitPerMinute, time.Minute, log))

	// Auth (public)
	loginLimit := middleware.RateLimitMiddleware(rdb, "login", cfg.LoginRateLimitPerMin, time.Minute, log)
	api.Post("/auth/login", loginLimit, h.Auth.Login)
	api.Post("/auth/password-reset/request", loginLimit, h.Auth.RequestPasswordReset)
	api.Post("/auth/password-reset/confirm", loginLimit, h.Auth.ConfirmPasswordReset)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(sessions, log))
	employee := middleware.RequireRoles(rbac.RoleCompanyEmployee)
	contractor := middleware.RequireRoles(rbac.RoleContractor)

	protected.Get("/auth/me", h.Auth.Me)
	protected.Post("/auth/logout", h.Auth.Logout)
	protected.Post("/auth/logout-all", h.Auth.LogoutAll)
	protected.Post("/auth/change-password", h.Auth.ChangePassword)
	protected.Get("/auth/sessions", h.Auth.ListSessions)
	protected.Delete("/auth/sessions/:id", h.Auth.RevokeSession)

	// Companies
	protected.Post("/companies", employee, h.Companies.Create)
	protected.Get("/companies", h.Companies.List)
	protected.Get("/companies/:id", h.Companies.Get)
	protected.Put("/companies/:id", employee, h.Companies.Update)
	protected.Delete("/companies/:id", employee, h.Companies.Delete)

	// Users
	protected.Post("/users", employee, h.Users.Create)
	protected.Get("/users", employee, h.Users.List)
	protected.Get("/users/contractors", employee, h.Users.ListContractors)
	protected.Get("/users/:id", h.Users.Get)
	protected.Put("/users/:id", h.Users.Update)
	protected.Post("/users/:id/activate", employee, h.Users.Activate)
	protected.Post("/users/:id/deactivate", employee, h.Users.Deactivate)

	// Campaigns
	protected.Post("/campaigns", employee, h.Campaigns.CreateCampaign)
	protected.Get("/campaigns", h.Campaigns.ListCampaigns)
	protected.Get("/campaigns/:id", h.Campaigns.GetCampaign)
	protected.Put("/campaigns/:id", employee, h.Campaigns.UpdateCampaign)
	protected.Patch("/campaigns/:id/status", employee, h.Campaigns.ChangeStatus)
	protected.Delete("/campaigns/:id", employee, h.Campaigns.DeleteCampaign)
	protected.Get("/campaigns/:id/stats", h.Campaigns.Stats)
	protected.Get("/campaigns/:id/contractors", h.Campaigns.ListContractors)
	protected.Post("/campaigns/:id/contractors", employee, h.Campaigns.AssignContractor)
	protected.Delete("/campaigns/:id/contractors/:contractorId", employee, h.Campaigns.UnassignContractor)
	protected.Post("/campaigns/:id/images", contractor, h.Images.Upload)
	protected.Get("/campaigns/:id/images", h.Images.ListByCampaign)

	// Images
	protected.Get("/images", h.Images.List)
	protected.Get("/images/my", contractor, h.Images.ListMine)
	protected.Get("/images/:id", h.Images.Get)
	protected.Get("/images/:id/file", h.Images.File)
	protected.Get("/images/:id/thumbnail", h.Images.Thumbnail)
	protected.Post("/images/:id/approve", employee, h.Images.Approve)
	protected.Post("/images/:id/reject", employee, h.Images.Reject)
	protected.Delete("/images/:id", h.Images.Delete)

	// Audit
	protected.Get("/audit-logs", employee, h.Audit.List)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware(sessions))
	app.Get("/ws", websocket.New(h.WSHub.HandleWS))
}
