package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/esly-abro/JKhomes-sub000/pkg/cmd"
	"github.com/esly-abro/JKhomes-sub000/pkg/engine"
	"github.com/esly-abro/JKhomes-sub000/pkg/eventbus"
	"github.com/esly-abro/JKhomes-sub000/pkg/ingestion"
	"github.com/esly-abro/JKhomes-sub000/pkg/leads"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/esly-abro/JKhomes-sub000/pkg/services"
	"github.com/esly-abro/JKhomes-sub000/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	dedup       ingestion.DedupStore
	validate    *validator.Validate
}

func NewAPI(
	ctx context.Context,
	logger *slog.Logger,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	redisURL string,
) *API {
	return &API{
		logger:      logger,
		persistence: p,
		eventBus:    eventBus,
		dedup:       newDedupStore(ctx, logger, redisURL),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// newDedupStore backs idempotency tracking with Redis when a URL is
// configured. The in-memory store does not survive restarts and is only
// suitable for local development.
func newDedupStore(ctx context.Context, logger *slog.Logger, redisURL string) ingestion.DedupStore {
	if redisURL == "" {
		logger.WarnContext(ctx, "REDIS_URL not set, using in-memory event deduplication")

		return ingestion.NewMemoryDedupStore()
	}

	store, err := ingestion.NewRedisDedupStore(ctx, redisURL, 0)
	if err != nil {
		panic(err)
	}

	return store
}

func (a *API) App() *fiber.App {
	registry := cmd.NewRegistry(a.logger)
	workflowService := services.NewWorkflow(a.persistence, registry, a.validate, a.logger)

	leadService := leads.NewClient(os.Getenv("CRM_API_URL"), os.Getenv("CRM_API_KEY"))
	eng := engine.New(a.persistence, a.eventBus, registry, leadService, a.logger)

	// Inbound events go onto the bus; the engine service consumes them.
	ingestor := ingestion.NewIngestor(a.dedup, ingestion.NewBusSink(a.eventBus), a.logger)

	handlers := web.NewAPIHandlers(workflowService, a.persistence, eng, ingestor, a.validate)

	return web.NewApp(handlers)
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
