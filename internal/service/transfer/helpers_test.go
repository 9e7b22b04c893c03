package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
)

func newTestLedger(t *testing.T) *inventory.Ledger {
	t.Helper()
	ledger, err := inventory.New(
		[]models.Location{
			{Code: "C60", Name: "Mid Valley"},
			{Code: "C61", Name: "Sunway"},
			{Code: "C62", Name: "Pavilion"},
		},
		[]models.Model{
			{Code: "M-001", Price: decimal.NewFromInt(120), Stock: map[string]int{"HQ": 100}},
			{Code: "M-002", Price: decimal.NewFromInt(85), Stock: map[string]int{"C60": 5}},
			{Code: "M-003", Price: decimal.NewFromInt(60), Stock: map[string]int{"C60": 10, "C61": 2}},
			{Code: "M-004", Price: decimal.NewFromInt(40), Stock: map[string]int{"C60": 8}},
			{Code: "M-005", Price: decimal.NewFromInt(25), Stock: map[string]int{"C60": 7}},
		},
	)
	if err != nil {
		t.Fatalf("Failed to build ledger: %v", err)
	}
	return ledger
}

// recordingSink captures persisted models and optionally fails for one code.
type recordingSink struct {
	mu        sync.Mutex
	persisted []models.Model
	failOn    string
}

func (s *recordingSink) PersistModel(_ context.Context, m models.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = append(s.persisted, m.Clone())
	if m.Code == s.failOn {
		return errors.New("disk full")
	}
	return nil
}

func (s *recordingSink) last(code string) (models.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.persisted) - 1; i >= 0; i-- {
		if s.persisted[i].Code == code {
			return s.persisted[i], true
		}
	}
	return models.Model{}, false
}

type recordingAudit struct {
	mu       sync.Mutex
	receipts []models.Receipt
	err      error
}

func (a *recordingAudit) AppendReceipt(_ context.Context, r models.Receipt) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.receipts = append(a.receipts, r)
	return nil
}

func mustCart(t *testing.T, ledger *inventory.Ledger, kind models.MovementKind, source, destination string) *Cart {
	t.Helper()
	cart, err := NewCart(ledger, kind, source, destination, "Aina")
	if err != nil {
		t.Fatalf("Failed to open cart: %v", err)
	}
	return cart
}

func mustAdd(t *testing.T, cart *Cart, code string, qty int) {
	t.Helper()
	if _, err := cart.AddItem(code, qty); err != nil {
		t.Fatalf("Failed to add %s x%d: %v", code, qty, err)
	}
}
