// Package reconcile compares frozen system stock against physical counts.
// Reports are informational only and never write back to the ledger.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
)

// ReportStore keeps finalized count reports.
type ReportStore interface {
	SaveCountReport(ctx context.Context, report models.CountReport) error
}

// Reconciler owns the open count sessions. A location has at most one open
// session; starting another replaces it.
type Reconciler struct {
	ledger *inventory.Ledger
	store  ReportStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu         sync.Mutex
	sessions   map[string]*Session
	byLocation map[string]string
}

// NewReconciler wires a reconciler. store may be nil.
func NewReconciler(ledger *inventory.Ledger, store ReportStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		ledger:     ledger,
		store:      store,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
		sessions:   make(map[string]*Session),
		byLocation: make(map[string]string),
	}
}

// StartSession snapshots the ledger at location and opens a count in INPUT.
func (r *Reconciler) StartSession(location string, countType models.CountType) (*Session, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, &models.ValidationError{Field: "location", Reason: "must not be empty"}
	}
	if location == models.HQ {
		return nil, &models.ValidationError{Field: "location", Reason: "HQ is a virtual supply and cannot be counted"}
	}
	if countType == "" {
		countType = models.CountMorning
	}

	snapshot, err := r.ledger.Snapshot(location)
	if err != nil {
		return nil, err
	}

	session := newSession(r.newID(), location, countType, r.now(), snapshot)
	if err := session.fire(EventStart); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if previous, ok := r.byLocation[location]; ok {
		delete(r.sessions, previous)
		r.logger.Info("count session replaced",
			zap.String("location", location),
			zap.String("previous_session", previous))
	}
	r.sessions[session.ID] = session
	r.byLocation[location] = session.ID
	r.mu.Unlock()

	r.logger.Info("count session started",
		zap.String("session_id", session.ID),
		zap.String("location", location),
		zap.String("type", string(countType)),
		zap.Int("models", len(snapshot)))
	return session, nil
}

// Session looks up an open session.
func (r *Reconciler) Session(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return session, nil
}

// RecordPhysicalCount sets the counted quantity for one model. Repeated calls overwrite.
func (r *Reconciler) RecordPhysicalCount(id, modelCode string, physicalQty int) error {
	if physicalQty < 0 {
		return &models.ValidationError{Field: "quantity", Reason: fmt.Sprintf("must not be negative, got %d", physicalQty)}
	}
	session, err := r.Session(id)
	if err != nil {
		return err
	}
	code, ok := r.ledger.ResolveModel(modelCode)
	if !ok {
		return &models.ModelNotFoundError{Code: strings.TrimSpace(modelCode)}
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.record(code, physicalQty)
}

// FinalizeReport classifies every entry and moves the session to REPORT. The
// first report is stored; finalizing again returns the same report.
func (r *Reconciler) FinalizeReport(ctx context.Context, id string) (models.CountReport, error) {
	session, err := r.Session(id)
	if err != nil {
		return models.CountReport{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state == StateReport && session.report != nil {
		return copyReport(*session.report), nil
	}
	if _, err := Next(session.state, EventFinalize); err != nil {
		return models.CountReport{}, err
	}

	report := session.buildReport()
	if r.store != nil {
		if err := r.store.SaveCountReport(ctx, report); err != nil {
			r.logger.Error("failed to store count report", zap.String("session_id", id), zap.Error(err))
			return models.CountReport{}, fmt.Errorf("save count report: %w", err)
		}
	}
	if err := session.fire(EventFinalize); err != nil {
		return models.CountReport{}, err
	}
	session.report = &report

	r.logger.Info("count report finalized",
		zap.String("session_id", id),
		zap.String("location", session.Location),
		zap.Int("total", report.Total),
		zap.Int("matches", report.Matches),
		zap.Int("mismatches", report.Mismatches),
		zap.Int("uncounted", report.Uncounted))
	return copyReport(report), nil
}

// Abandon discards a session that is still taking input.
func (r *Reconciler) Abandon(id string) error {
	return r.leave(id, EventAbandon)
}

// Finish closes a session after its report was reviewed.
func (r *Reconciler) Finish(id string) error {
	return r.leave(id, EventFinish)
}

func (r *Reconciler) leave(id string, event Event) error {
	session, err := r.Session(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	err = session.fire(event)
	session.mu.Unlock()
	if err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.sessions, id)
	if r.byLocation[session.Location] == id {
		delete(r.byLocation, session.Location)
	}
	r.mu.Unlock()

	r.logger.Debug("count session closed", zap.String("session_id", id), zap.String("event", string(event)))
	return nil
}
