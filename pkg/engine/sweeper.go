package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/esly-abro/JKhomes-sub000/pkg/events"
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// Sweeper periodically replays due timers from the durable registrations.
// In-memory timers cover the common path; the sweep covers firings lost to a
// process restart, treating them identically to a timer callback.
type Sweeper struct {
	engine   *Engine
	logger   *slog.Logger
	interval time.Duration
	cron     *cron.Cron
}

func NewSweeper(engine *Engine, logger *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Sweeper{
		engine:   engine,
		logger:   logger.With("module", "timer_sweeper"),
		interval: interval,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.Sweep)
	if err != nil {
		return fmt.Errorf("failed to schedule timer sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Timer sweep started", "interval", s.interval)

	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep fires every due timer found in storage. Firings whose in-memory timer
// was lost are surfaced on the bus as recovery events.
func (s *Sweeper) Sweep() {
	ctx := context.Background()
	now := s.engine.clock()

	for _, kind := range []models.TimerKind{models.TimerKindDelay, models.TimerKindTimeout} {
		due, err := s.engine.persistence.InstanceRepository().ListWaiting(ctx, kind, now)
		if err != nil {
			s.logger.Error("Failed to list waiting instances", "kind", kind, "error", err)

			continue
		}

		for _, instance := range due {
			if instance.PendingTimer == nil {
				continue
			}

			if !s.engine.timers.Has(instance.ID) {
				s.logger.Warn("Recovering timer lost from memory",
					"instance_id", instance.ID, "kind", kind, "fire_at", instance.PendingTimer.FireAt)

				s.engine.publish(ctx, instance.LeadID, events.TimerRecovered{
					BaseEvent: s.engine.baseEvent(events.TimerRecoveredEvent, instance),
					Kind:      kind,
					FireAt:    instance.PendingTimer.FireAt,
				})
			}

			err := s.engine.OnTimerFired(ctx, instance.ID)
			if err != nil {
				s.logger.Error("Failed to fire due timer", "instance_id", instance.ID, "error", err)
			}
		}
	}
}
