package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/esly-abro/JKhomes-sub000/pkg/cmd"
	"github.com/esly-abro/JKhomes-sub000/pkg/engine"
	"github.com/esly-abro/JKhomes-sub000/pkg/leads"
	"github.com/esly-abro/JKhomes-sub000/pkg/log"
	"github.com/esly-abro/JKhomes-sub000/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "leadflow-engine",
		EnableShellCompletion: true,
		Usage:                 "Start the workflow execution engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses (required for the kafka event bus)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.DurationFlag{
				Name:    "sweep-interval",
				Usage:   "How often to replay due timers from storage",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("SWEEP_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "engine-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("leadflow-engine").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Leadflow Engine")

			eventBus := cmd.NewEventBus(
				command.String("event-bus"), "leadflow-engine",
				command.String("kafka-brokers"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger)
			leadService := leads.NewClient(os.Getenv("CRM_API_URL"), os.Getenv("CRM_API_KEY"))

			var engineOpts []engine.Option

			tracer, err := otelhelper.NewTracer(ctx, "leadflow-engine")
			if err != nil {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			} else {
				engineOpts = append(engineOpts, engine.WithTracer(tracer))
			}

			eng := engine.New(persistence, eventBus, registry, leadService, logger, engineOpts...)

			runner := NewRunner(workerID, eng, eventBus, logger, command.Duration("sweep-interval"))

			if err := runner.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start engine runner", "error", err)

				return err
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
