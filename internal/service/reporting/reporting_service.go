package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
)

const dateLayout = "2006-01-02"

// DefaultLowStockThreshold is used when the service is built with a zero threshold.
const DefaultLowStockThreshold = 5

// SnapshotStore keeps daily stock snapshots.
type SnapshotStore interface {
	SaveStockSnapshot(ctx context.Context, snapshot models.StockSnapshot) error
}

// Service builds read-only stock views over the ledger for the API, chat
// replies and the nightly job.
type Service struct {
	ledger    *inventory.Ledger
	store     SnapshotStore
	threshold int
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(ledger *inventory.Ledger, store SnapshotStore, threshold int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Service{ledger: ledger, store: store, threshold: threshold, logger: logger, now: time.Now}
}

// ResolveLocation maps a location code typed by an operator to the ledger's code.
func (s *Service) ResolveLocation(code string) (string, bool) {
	return s.ledger.ResolveLocation(code)
}

// StockView lists every model at location, optionally filtered by a
// case-insensitive keyword on the model code.
func (s *Service) StockView(location, keyword string) (models.StockView, error) {
	loc, ok := s.ledger.Location(location)
	if !ok {
		return models.StockView{}, &models.LocationNotFoundError{Code: location}
	}

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	view := models.StockView{Location: loc, Lines: []models.StockLine{}, TotalValue: decimal.Zero}

	for _, m := range s.ledger.Models() {
		if keyword != "" && !strings.Contains(strings.ToLower(m.Code), keyword) {
			continue
		}
		qty := m.StockAt(location)
		line := models.StockLine{
			ModelCode: m.Code,
			Price:     m.Price,
			Quantity:  qty,
			Value:     m.Price.Mul(decimal.NewFromInt(int64(qty))),
			Status:    models.StatusFor(qty, s.threshold),
		}
		view.Lines = append(view.Lines, line)
		view.TotalValue = view.TotalValue.Add(line.Value)
		view.TotalItems += qty
		if line.Status != models.StatusInStock {
			view.LowStockCount++
		}
	}
	return view, nil
}

// LowStock returns the lines at location that are low or out of stock.
func (s *Service) LowStock(location string) ([]models.StockLine, error) {
	view, err := s.StockView(location, "")
	if err != nil {
		return nil, err
	}
	var low []models.StockLine
	for _, line := range view.Lines {
		if line.Status != models.StatusInStock {
			low = append(low, line)
		}
	}
	return low, nil
}

// SnapshotAll stores the current stock of every outlet. HQ is skipped because
// its quantities are a virtual supply. Failures for one outlet do not stop the others.
func (s *Service) SnapshotAll(ctx context.Context) ([]models.StockSnapshot, error) {
	takenAt := s.now().UTC()
	var (
		snapshots []models.StockSnapshot
		firstErr  error
	)

	for _, loc := range s.ledger.Locations() {
		if loc.Code == models.HQ {
			continue
		}
		quantities, err := s.ledger.Snapshot(loc.Code)
		if err != nil {
			return snapshots, fmt.Errorf("snapshot %s: %w", loc.Code, err)
		}
		snapshot := models.StockSnapshot{Location: loc.Code, TakenAt: takenAt, Quantities: quantities}

		if s.store != nil {
			if err := s.store.SaveStockSnapshot(ctx, snapshot); err != nil {
				s.logger.Error("failed to store stock snapshot", zap.String("location", loc.Code), zap.Error(err))
				if firstErr == nil {
					firstErr = fmt.Errorf("store snapshot %s: %w", loc.Code, err)
				}
				continue
			}
		}
		snapshots = append(snapshots, snapshot)
	}

	s.logger.Info("stock snapshots taken", zap.Int("locations", len(snapshots)), zap.Time("taken_at", takenAt))
	return snapshots, firstErr
}

// LowStockAlert summarises low stock across every outlet. It returns an
// empty string when nothing needs attention.
func (s *Service) LowStockAlert() string {
	var b strings.Builder
	for _, loc := range s.ledger.Locations() {
		if loc.Code == models.HQ {
			continue
		}
		low, err := s.LowStock(loc.Code)
		if err != nil || len(low) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%s):", loc.Code, loc.Name)
		for _, line := range low {
			fmt.Fprintf(&b, "\n- %s: %d (%s)", line.ModelCode, line.Quantity, line.Status)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("Low stock report %s:%s", s.now().Format(dateLayout), b.String())
}

// StockText renders a stock view for a chat reply.
func StockText(view models.StockView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock at %s (%s)", view.Location.Code, view.Location.Name)
	if len(view.Lines) == 0 {
		b.WriteString("\nNo matching models.")
		return b.String()
	}
	for _, line := range view.Lines {
		fmt.Fprintf(&b, "\n- %s: %d @ %s = %s (%s)",
			line.ModelCode, line.Quantity, line.Price.StringFixed(2), line.Value.StringFixed(2), line.Status)
	}
	fmt.Fprintf(&b, "\nItems: %d | Value: %s | Low: %d", view.TotalItems, view.TotalValue.StringFixed(2), view.LowStockCount)
	return b.String()
}
