package usecase

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sweep drops expired records and idle send budgets.
func (s *Usecase) Sweep(ctx context.Context) error {
	records := s.registry.Sweep()
	budgets := s.limiter.Sweep()

	if records > 0 {
		s.swept.Add(int64(records))
		s.sweptCounter.Add(ctx, int64(records), metric.WithAttributes(attribute.String("kind", "record")))
	}
	if records > 0 || budgets > 0 {
		slog.DebugContext(ctx, "phoneotp sweep", "records", records, "budgets", budgets)
	}

	return nil
}

// Swept returns how many expired records the sweeper has removed so far.
func (s *Usecase) Swept() int64 {
	return s.swept.Load()
}

// StartSweeper runs Sweep on the goroutine manager until ctx is canceled.
func (s *Usecase) StartSweeper(ctx context.Context) {
	interval := s.cfg.GetSecond("modules.phoneotp.sweep_interval_seconds")
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	s.goroutine.Every(ctx, "phoneotp.sweeper", interval, s.Sweep)
}
