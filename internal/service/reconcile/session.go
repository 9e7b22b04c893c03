package reconcile

import (
	"sync"
	"time"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

// Session is one stock count at one location. System quantities are frozen
// when the session starts and never re-read from the ledger.
type Session struct {
	ID        string
	Location  string
	Type      models.CountType
	StartedAt time.Time

	mu      sync.Mutex
	state   State
	entries []models.CountEntry
	index   map[string]int
	report  *models.CountReport
}

func newSession(id, location string, countType models.CountType, startedAt time.Time, snapshot map[string]int) *Session {
	codes := models.SortedCodes(snapshot)
	s := &Session{
		ID:        id,
		Location:  location,
		Type:      countType,
		StartedAt: startedAt,
		state:     StateSelection,
		entries:   make([]models.CountEntry, 0, len(codes)),
		index:     make(map[string]int, len(codes)),
	}
	for i, code := range codes {
		s.entries = append(s.entries, models.CountEntry{ModelCode: code, SystemQty: snapshot[code]})
		s.index[code] = i
	}
	return s
}

// State returns the current workflow step.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Entries returns a copy of the count rows ordered by model code.
func (s *Session) Entries() []models.CountEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CountEntry(nil), s.entries...)
}

// fire applies event and moves the session to the resulting state.
// Callers hold s.mu.
func (s *Session) fire(event Event) error {
	next, err := Next(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Session) record(modelCode string, physicalQty int) error {
	i, ok := s.index[modelCode]
	if !ok {
		return &models.ModelNotFoundError{Code: modelCode}
	}
	if err := s.fire(EventRecord); err != nil {
		return err
	}
	s.entries[i].PhysicalQty = physicalQty
	s.entries[i].Counted = true
	return nil
}

// buildReport classifies every entry. Uncounted rows compare as zero.
func (s *Session) buildReport() models.CountReport {
	report := models.CountReport{
		SessionID: s.ID,
		Location:  s.Location,
		Type:      s.Type,
		StartedAt: s.StartedAt,
		Results:   make([]models.CountResult, 0, len(s.entries)),
		Total:     len(s.entries),
	}
	for _, entry := range s.entries {
		physical := entry.PhysicalQty
		if !entry.Counted {
			physical = 0
			report.Uncounted++
		}
		result := models.CountResult{
			ModelCode:   entry.ModelCode,
			SystemQty:   entry.SystemQty,
			PhysicalQty: physical,
			Counted:     entry.Counted,
			Match:       entry.SystemQty == physical,
			Diff:        physical - entry.SystemQty,
		}
		if result.Match {
			report.Matches++
		} else {
			report.Mismatches++
		}
		report.Results = append(report.Results, result)
	}
	return report
}

func copyReport(r models.CountReport) models.CountReport {
	r.Results = append([]models.CountResult(nil), r.Results...)
	return r
}
