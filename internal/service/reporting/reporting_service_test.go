package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
)

type fakeSnapshotStore struct {
	saved  []models.StockSnapshot
	failOn string
}

func (f *fakeSnapshotStore) SaveStockSnapshot(_ context.Context, snapshot models.StockSnapshot) error {
	if snapshot.Location == f.failOn {
		return errors.New("write conflict")
	}
	f.saved = append(f.saved, snapshot)
	return nil
}

func newTestService(t *testing.T, store SnapshotStore) *Service {
	t.Helper()
	ledger, err := inventory.New(
		[]models.Location{{Code: "C60", Name: "Mid Valley"}, {Code: "C61", Name: "Sunway"}},
		[]models.Model{
			{Code: "GH-101", Price: decimal.RequireFromString("129.90"), Stock: map[string]int{"HQ": 50, "C60": 3}},
			{Code: "GH-202", Price: decimal.RequireFromString("89.50"), Stock: map[string]int{"C60": 10, "C61": 8}},
			{Code: "XL-300", Price: decimal.RequireFromString("45.00"), Stock: map[string]int{"C61": 6}},
		},
	)
	if err != nil {
		t.Fatalf("Failed to build ledger: %v", err)
	}
	svc := NewService(ledger, store, 0, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 22, 15, 0, 0, time.UTC) }
	return svc
}

func TestStockView(t *testing.T) {
	svc := newTestService(t, nil)

	view, err := svc.StockView("C60", "")
	if err != nil {
		t.Fatalf("StockView failed: %v", err)
	}
	if len(view.Lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(view.Lines))
	}

	testCases := []struct {
		code   string
		qty    int
		value  string
		status models.StockStatus
	}{
		{"GH-101", 3, "389.70", models.StatusLowStock},
		{"GH-202", 10, "895.00", models.StatusInStock},
		{"XL-300", 0, "0.00", models.StatusOutOfStock},
	}
	for i, tc := range testCases {
		line := view.Lines[i]
		if line.ModelCode != tc.code || line.Quantity != tc.qty {
			t.Errorf("Expected %s x%d, got %s x%d", tc.code, tc.qty, line.ModelCode, line.Quantity)
		}
		if line.Value.StringFixed(2) != tc.value {
			t.Errorf("Expected value %s for %s, got %s", tc.value, tc.code, line.Value.StringFixed(2))
		}
		if line.Status != tc.status {
			t.Errorf("Expected %s for %s, got %s", tc.status, tc.code, line.Status)
		}
	}

	if view.TotalValue.StringFixed(2) != "1284.70" {
		t.Errorf("Expected total value 1284.70, got %s", view.TotalValue.StringFixed(2))
	}
	if view.TotalItems != 13 || view.LowStockCount != 2 {
		t.Errorf("Expected 13 items and 2 low, got %d and %d", view.TotalItems, view.LowStockCount)
	}
}

func TestStockView_KeywordAndUnknownLocation(t *testing.T) {
	svc := newTestService(t, nil)

	view, err := svc.StockView("C61", "gh")
	if err != nil {
		t.Fatalf("StockView failed: %v", err)
	}
	if len(view.Lines) != 2 {
		t.Errorf("Expected the keyword to keep 2 GH models, got %d", len(view.Lines))
	}

	if _, err := svc.StockView("C99", ""); !errors.Is(err, models.ErrLocationNotFound) {
		t.Errorf("Expected ErrLocationNotFound, got %v", err)
	}
}

func TestSnapshotAll(t *testing.T) {
	store := &fakeSnapshotStore{failOn: "C61"}
	svc := newTestService(t, store)

	snapshots, err := svc.SnapshotAll(context.Background())
	if err == nil {
		t.Fatalf("Expected the C61 store failure to surface")
	}
	if len(snapshots) != 1 || snapshots[0].Location != "C60" {
		t.Fatalf("Expected only the C60 snapshot to succeed, got %+v", snapshots)
	}
	if snapshots[0].Quantities["GH-202"] != 10 || len(snapshots[0].Quantities) != 3 {
		t.Errorf("Unexpected quantities %v", snapshots[0].Quantities)
	}
	for _, saved := range store.saved {
		if saved.Location == models.HQ {
			t.Errorf("Expected HQ to be skipped")
		}
	}
}

func TestLowStockAlert(t *testing.T) {
	svc := newTestService(t, nil)

	alert := svc.LowStockAlert()
	if !strings.HasPrefix(alert, "Low stock report 2025-06-01:") {
		t.Errorf("Unexpected alert header: %q", alert)
	}
	for _, want := range []string{"C60 (Mid Valley)", "- GH-101: 3 (Low Stock)", "- XL-300: 0 (Out of Stock)", "C61 (Sunway)"} {
		if !strings.Contains(alert, want) {
			t.Errorf("Expected alert to contain %q, got:\n%s", want, alert)
		}
	}
	if strings.Contains(alert, "GH-202: 10") {
		t.Errorf("Expected in-stock lines to be left out")
	}
}

func TestStockText(t *testing.T) {
	svc := newTestService(t, nil)

	view, err := svc.StockView("C61", "XL")
	if err != nil {
		t.Fatalf("StockView failed: %v", err)
	}
	want := "Stock at C61 (Sunway)\n- XL-300: 6 @ 45.00 = 270.00 (In Stock)\nItems: 6 | Value: 270.00 | Low: 0"
	if got := StockText(view); got != want {
		t.Errorf("Expected:\n%s\ngot:\n%s", want, got)
	}
}
