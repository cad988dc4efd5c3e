package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/engine"
	"github.com/esly-abro/JKhomes-sub000/pkg/eventbus"
	"github.com/esly-abro/JKhomes-sub000/pkg/events"
)

// Runner subscribes the engine to the lead event stream and keeps the timer
// sweep running until the process is told to stop.
type Runner struct {
	id       string
	logger   *slog.Logger
	engine   *engine.Engine
	eventBus eventbus.EventBus
	sweeper  *engine.Sweeper
}

func NewRunner(
	id string,
	eng *engine.Engine,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	sweepInterval time.Duration,
) *Runner {
	return &Runner{
		id:       id,
		logger:   logger.With("module", "engine_runner", "worker_id", id),
		engine:   eng,
		eventBus: eventBus,
		sweeper:  engine.NewSweeper(eng, logger, sweepInterval),
	}
}

func (r *Runner) Start(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Starting engine runner")

	leadEventTypes := []events.EventType{
		events.LeadCreated,
		events.LeadUpdated,
		events.AppointmentScheduled,
		events.WhatsAppReply,
		events.CallCompleted,
	}

	for _, eventType := range leadEventTypes {
		if err := r.eventBus.Handle(eventType, r.handleLeadEvent); err != nil {
			return err
		}
	}

	if err := r.eventBus.Subscribe(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	// Replay timers that came due while no engine was running, then keep
	// sweeping on the interval.
	r.sweeper.Sweep()

	if err := r.sweeper.Start(); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Engine runner started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	r.logger.InfoContext(ctx, "Shutting down engine runner...")

	r.sweeper.Stop()
	r.engine.Stop()

	return nil
}

func (r *Runner) handleLeadEvent(ctx context.Context, event any) error {
	leadEvent, ok := event.(*events.LeadEvent)
	if !ok {
		r.logger.ErrorContext(ctx, "Invalid event payload for lead event")

		return nil
	}

	logger := r.logger.With(
		"event_id", leadEvent.ID,
		"event_type", leadEvent.EventType,
		"tenant_id", leadEvent.TenantID,
		"lead_id", leadEvent.LeadID,
	)
	logger.InfoContext(ctx, "Processing lead event")

	err := r.engine.OnEvent(ctx, *leadEvent)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to process lead event", "error", err)

		return err
	}

	return nil
}
