// Package audit fans committed receipts and finalized count reports out to the
// append-only store of record, optional mirrors and an optional notifier.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

const notifyTimeout = 15 * time.Second

// Store is an append-only log of receipts and count reports.
type Store interface {
	AppendReceipt(ctx context.Context, receipt models.Receipt) error
	SaveCountReport(ctx context.Context, report models.CountReport) error
}

// Notifier pushes a short text to whoever supervises stock movements.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Service writes to the primary store first. Only a primary failure is
// returned; mirrors and the notifier are best effort.
type Service struct {
	primary  Store
	mirrors  []Store
	notifier Notifier
	logger   *zap.Logger
	pending  sync.WaitGroup
}

// NewService wires the audit fan-out. notifier may be nil.
func NewService(primary Store, notifier Notifier, logger *zap.Logger, mirrors ...Store) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{primary: primary, mirrors: mirrors, notifier: notifier, logger: logger}
}

// AppendReceipt records a committed transfer.
func (s *Service) AppendReceipt(ctx context.Context, receipt models.Receipt) error {
	if err := s.primary.AppendReceipt(ctx, receipt); err != nil {
		return fmt.Errorf("append receipt to store: %w", err)
	}

	for _, mirror := range s.mirrors {
		if err := mirror.AppendReceipt(ctx, receipt); err != nil {
			s.logger.Warn("receipt mirror failed", zap.String("receipt_id", receipt.ID), zap.Error(err))
		}
	}
	s.notify(ctx, receipt.Text())
	return nil
}

// SaveCountReport records a finalized count. Only counts with mismatches are
// pushed to the notifier.
func (s *Service) SaveCountReport(ctx context.Context, report models.CountReport) error {
	if err := s.primary.SaveCountReport(ctx, report); err != nil {
		return fmt.Errorf("save count report to store: %w", err)
	}

	for _, mirror := range s.mirrors {
		if err := mirror.SaveCountReport(ctx, report); err != nil {
			s.logger.Warn("count report mirror failed", zap.String("session_id", report.SessionID), zap.Error(err))
		}
	}
	if report.Mismatches > 0 {
		s.notify(ctx, CountSummary(report))
	}
	return nil
}

// notify sends in the background, detached from the caller's cancellation.
func (s *Service) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.notifier.Notify(ctx, text); err != nil {
			s.logger.Warn("audit notification failed", zap.Error(err))
		}
	}()
}

// Wait blocks until every notification in flight has been sent or has failed.
func (s *Service) Wait() {
	s.pending.Wait()
}

// CountSummary renders a count report for chat delivery.
func CountSummary(report models.CountReport) string {
	text := fmt.Sprintf("=== %s Count: %s ===\nMatched: %d/%d\nMismatched: %d",
		report.Type.Label(), report.Location, report.Matches, report.Total, report.Mismatches)
	if report.Uncounted > 0 {
		text += fmt.Sprintf("\nNot counted: %d", report.Uncounted)
	}
	for _, result := range report.Results {
		if result.Match {
			continue
		}
		text += fmt.Sprintf("\n- %s: system %d, counted %d (%+d)", result.ModelCode, result.SystemQty, result.PhysicalQty, result.Diff)
	}
	return text
}
