package scheduler

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goldenhour/backoffice/internal/config"
	"github.com/goldenhour/backoffice/internal/domain/models"
)

type fakeReports struct {
	snapshots int
	err       error
	alert     string
}

func (f *fakeReports) SnapshotAll(context.Context) ([]models.StockSnapshot, error) {
	f.snapshots++
	return nil, f.err
}

func (f *fakeReports) LowStockAlert() string { return f.alert }

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func TestNewScheduler_InvalidTimezone(t *testing.T) {
	_, err := NewScheduler(config.ReportingConfig{CronSchedule: "15 22 * * *", Timezone: "Mars/Olympus"}, &fakeReports{}, nil, nil)
	if err == nil {
		t.Errorf("Expected an unknown timezone to be rejected")
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "every night", Timezone: "UTC"}, &fakeReports{}, nil, nil)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Errorf("Expected an invalid cron expression to be rejected")
	}
}

func TestRunNightly(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	reports := &fakeReports{err: errors.New("store offline"), alert: "Low stock report 2025-06-01:\nC60 (Mid Valley):"}
	notifier := &fakeNotifier{}

	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "15 22 * * *", Timezone: "Asia/Kuala_Lumpur"}, reports, notifier, zap.New(core))
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	s.RunNightly(context.Background())

	if reports.snapshots != 1 {
		t.Errorf("Expected one snapshot run, got %d", reports.snapshots)
	}
	if logs.FilterMessage("stock snapshot incomplete").Len() != 1 {
		t.Errorf("Expected the snapshot failure to be logged")
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != reports.alert {
		t.Errorf("Expected the alert to be sent, got %v", notifier.sent)
	}

	reports.alert = ""
	s.RunNightly(context.Background())
	if len(notifier.sent) != 1 {
		t.Errorf("Expected no message when nothing is low")
	}
}
