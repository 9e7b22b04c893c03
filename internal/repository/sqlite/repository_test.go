package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "goldenhour.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo
}

func countRows(t *testing.T, repo *Repository, query string, args ...any) int {
	t.Helper()
	var n int
	if err := repo.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	return n
}

func TestRepository_LocationsAndModels(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	for _, loc := range []models.Location{{Code: "C61", Name: "Sunway"}, {Code: "C60", Name: "Mid"}, {Code: "C60", Name: "Mid Valley"}} {
		if err := repo.UpsertLocation(ctx, loc); err != nil {
			t.Fatalf("UpsertLocation failed: %v", err)
		}
	}
	locations, err := repo.ListLocations(ctx)
	if err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}
	if len(locations) != 2 || locations[0].Code != "C60" || locations[0].Name != "Mid Valley" {
		t.Errorf("Unexpected locations %+v", locations)
	}

	model := models.Model{Code: "GH-101", Price: decimal.RequireFromString("129.90"), Stock: map[string]int{"HQ": 40, "C60": 3}}
	if err := repo.PersistModel(ctx, model); err != nil {
		t.Fatalf("PersistModel failed: %v", err)
	}
	model.Stock = map[string]int{"HQ": 40, "C61": 3}
	if err := repo.PersistModel(ctx, model); err != nil {
		t.Fatalf("Second PersistModel failed: %v", err)
	}
	if err := repo.PersistModel(ctx, model); err != nil {
		t.Fatalf("Repeated PersistModel failed: %v", err)
	}

	items, err := repo.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected one model, got %d", len(items))
	}
	got := items[0]
	if !got.Price.Equal(decimal.RequireFromString("129.90")) {
		t.Errorf("Expected price 129.90, got %s", got.Price)
	}
	if got.StockAt("C60") != 0 || got.StockAt("C61") != 3 || got.StockAt("HQ") != 40 || len(got.Stock) != 2 {
		t.Errorf("Expected the stock rows to be replaced, got %v", got.Stock)
	}
}

func TestRepository_AppendReceiptIsIdempotent(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	receipt := models.Receipt{
		ID:            "r-1",
		Kind:          models.StockOut,
		Source:        "C60",
		Destination:   "C61",
		Lines:         []models.TransferLineItem{{ModelCode: "GH-101", Quantity: 2}, {ModelCode: "GH-202", Quantity: 1}},
		TotalQuantity: 3,
		Actor:         "Aina",
		CommittedAt:   time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 2; i++ {
		if err := repo.AppendReceipt(ctx, receipt); err != nil {
			t.Fatalf("AppendReceipt #%d failed: %v", i+1, err)
		}
	}

	if n := countRows(t, repo, `SELECT COUNT(*) FROM receipts`); n != 1 {
		t.Errorf("Expected 1 receipt, got %d", n)
	}
	if n := countRows(t, repo, `SELECT COUNT(*) FROM receipt_lines WHERE receipt_id = ?`, "r-1"); n != 2 {
		t.Errorf("Expected 2 receipt lines, got %d", n)
	}

	var body string
	if err := repo.db.QueryRow(`SELECT body FROM receipts WHERE id = ?`, "r-1").Scan(&body); err != nil {
		t.Fatalf("Query body failed: %v", err)
	}
	if body != receipt.Text() {
		t.Errorf("Expected stored body to match the receipt text, got:\n%s", body)
	}
}

func TestRepository_CountReportsAndSnapshots(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	report := models.CountReport{
		SessionID:  "s-1",
		Location:   "C60",
		Type:       models.CountNight,
		StartedAt:  time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC),
		Total:      2,
		Matches:    1,
		Mismatches: 1,
		Results: []models.CountResult{
			{ModelCode: "GH-101", SystemQty: 30, PhysicalQty: 28, Counted: true, Diff: -2},
			{ModelCode: "GH-202", SystemQty: 5, PhysicalQty: 5, Counted: true, Match: true},
		},
	}
	if err := repo.SaveCountReport(ctx, report); err != nil {
		t.Fatalf("SaveCountReport failed: %v", err)
	}
	if err := repo.SaveCountReport(ctx, report); err != nil {
		t.Fatalf("Repeated SaveCountReport failed: %v", err)
	}
	if n := countRows(t, repo, `SELECT COUNT(*) FROM count_results WHERE session_id = ?`, "s-1"); n != 2 {
		t.Errorf("Expected 2 count rows, got %d", n)
	}
	if n := countRows(t, repo, `SELECT diff FROM count_results WHERE model_code = ?`, "GH-101"); n != -2 {
		t.Errorf("Expected diff -2, got %d", n)
	}

	snapshot := models.StockSnapshot{
		Location:   "C60",
		TakenAt:    time.Date(2025, 6, 1, 22, 15, 0, 0, time.UTC),
		Quantities: map[string]int{"GH-101": 28, "GH-202": 5},
	}
	if err := repo.SaveStockSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("SaveStockSnapshot failed: %v", err)
	}
	if n := countRows(t, repo, `SELECT COUNT(*) FROM stock_snapshots WHERE location = ?`, "C60"); n != 2 {
		t.Errorf("Expected 2 snapshot rows, got %d", n)
	}
}

func TestOpen_ReappliesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goldenhour.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.UpsertLocation(ctx, models.Location{Code: "C60", Name: "Mid Valley"}); err != nil {
		t.Fatalf("UpsertLocation failed: %v", err)
	}
	_ = first.Close(ctx)

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer second.Close(ctx)

	locations, err := second.ListLocations(ctx)
	if err != nil || len(locations) != 1 {
		t.Errorf("Expected the location to survive a reopen, got %v (%v)", locations, err)
	}
}
