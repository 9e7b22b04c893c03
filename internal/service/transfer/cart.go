package transfer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
)

// Cart stages line items for one (kind, source, destination) context. It never
// mutates the ledger; availability checks are read-only projections.
type Cart struct {
	ID          string
	Kind        models.MovementKind
	Source      string
	Destination string
	Actor       string
	OpenedAt    time.Time

	ledger *inventory.Ledger
	mu     sync.Mutex
	items  []models.TransferLineItem
}

// NewCart validates the transfer context against the ledger's locations.
// STOCK_IN always draws from HQ.
func NewCart(ledger *inventory.Ledger, kind models.MovementKind, source, destination, actor string) (*Cart, error) {
	source = strings.TrimSpace(source)
	destination = strings.TrimSpace(destination)

	switch kind {
	case models.StockIn:
		if source == "" {
			source = models.HQ
		}
		if source != models.HQ {
			return nil, &models.ValidationError{Field: "source", Reason: "stock in always draws from HQ"}
		}
	case models.StockOut:
		if source == "" {
			return nil, &models.ValidationError{Field: "source", Reason: "must not be empty"}
		}
	default:
		return nil, &models.ValidationError{Field: "kind", Reason: fmt.Sprintf("unsupported movement kind %q", kind)}
	}

	if destination == "" {
		return nil, &models.ValidationError{Field: "destination", Reason: "must not be empty"}
	}
	if _, ok := ledger.Location(source); !ok {
		return nil, &models.LocationNotFoundError{Code: source}
	}
	if _, ok := ledger.Location(destination); !ok {
		return nil, &models.LocationNotFoundError{Code: destination}
	}
	if source == destination {
		return nil, &models.SameLocationError{Code: source}
	}

	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = models.UnknownActor
	}

	return &Cart{
		Kind:        kind,
		Source:      source,
		Destination: destination,
		Actor:       actor,
		OpenedAt:    time.Now().UTC(),
		ledger:      ledger,
	}, nil
}

// AddItem appends a line after validating it. Repeated model codes accumulate,
// so the STOCK_OUT availability check subtracts everything already staged.
func (c *Cart) AddItem(modelCode string, quantity int) (models.TransferLineItem, error) {
	if strings.TrimSpace(modelCode) == "" {
		return models.TransferLineItem{}, &models.ValidationError{Field: "model", Reason: "must not be empty"}
	}
	if quantity <= 0 {
		return models.TransferLineItem{}, &models.ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be greater than 0, got %d", quantity)}
	}

	code, ok := c.ledger.ResolveModel(modelCode)
	if !ok {
		return models.TransferLineItem{}, &models.ModelNotFoundError{Code: strings.TrimSpace(modelCode)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Kind == models.StockOut {
		staged := c.stagedLocked(code)
		err := c.ledger.View(func(tx *inventory.Tx) error {
			available := tx.GetStock(code, c.Source) - staged
			if available < quantity {
				return &models.InsufficientStockError{
					ModelCode: code,
					Location:  c.Source,
					Requested: quantity,
					Available: available,
				}
			}
			return nil
		})
		if err != nil {
			return models.TransferLineItem{}, err
		}
	}

	item := models.TransferLineItem{ModelCode: code, Quantity: quantity}
	c.items = append(c.items, item)
	return item, nil
}

// RemoveItem drops one staged line by position.
func (c *Cart) RemoveItem(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.items) {
		return &models.ValidationError{Field: "index", Reason: fmt.Sprintf("%d is out of range for %d staged lines", index, len(c.items))}
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

// Clear empties the staged list.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the staged lines.
func (c *Cart) Items() []models.TransferLineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.TransferLineItem(nil), c.items...)
}

// Len returns the number of staged lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Staged returns the cumulative quantity staged for a model.
func (c *Cart) Staged(modelCode string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stagedLocked(modelCode)
}

func (c *Cart) stagedLocked(modelCode string) int {
	total := 0
	for _, item := range c.items {
		if item.ModelCode == modelCode {
			total += item.Quantity
		}
	}
	return total
}
