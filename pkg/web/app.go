package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp builds the fiber application with all routes registered.
func NewApp(handlers *APIHandlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Leadflow API")
	})

	v1 := app.Group("/v1")

	w := v1.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/publish", handlers.PublishWorkflow)
	w.Post("/:id/archive", handlers.ArchiveWorkflow)
	w.Post("/:id/new-version", handlers.CreateWorkflowVersion)
	w.Post("/:id/cancel-instances", handlers.CancelWorkflowInstances)

	v1.Get("/instances/:id", handlers.GetInstance)
	v1.Get("/leads/:id/activities", handlers.GetLeadActivities)
	v1.Post("/events", handlers.IngestEvent)

	hooks := app.Group("/webhooks")
	hooks.Post("/whatsapp", handlers.WhatsAppWebhook)
	hooks.Post("/calls", handlers.CallWebhook)

	app.Get("/health", handlers.HealthCheck)

	return app
}
