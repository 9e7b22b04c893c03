package scheduler

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/config"
	"github.com/goldenhour/backoffice/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// Snapshotter takes the nightly stock snapshot and builds the low stock alert.
type Snapshotter interface {
	SnapshotAll(ctx context.Context) ([]models.StockSnapshot, error)
	LowStockAlert() string
}

// Notifier delivers the low stock alert.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	reports  Snapshotter
	notifier Notifier
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running in the configured timezone.
// notifier may be nil when no chat integration is configured.
func NewScheduler(cfg config.ReportingConfig, reports Snapshotter, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: cfg.CronSchedule,
		reports:  reports,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Start registers the nightly job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runNightly); err != nil {
		return fmt.Errorf("schedule nightly snapshot: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runNightly() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	s.RunNightly(ctx)
}

// RunNightly snapshots every outlet and sends the low stock alert.
func (s *Scheduler) RunNightly(ctx context.Context) {
	snapshots, err := s.reports.SnapshotAll(ctx)
	if err != nil {
		s.logger.Error("stock snapshot incomplete", zap.Int("stored", len(snapshots)), zap.Error(err))
	}

	if s.notifier == nil {
		return
	}
	alert := s.reports.LowStockAlert()
	if alert == "" {
		s.logger.Info("no low stock to report")
		return
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.Error("failed to send low stock alert", zap.Error(err))
		return
	}
	s.logger.Info("low stock alert sent")
}
