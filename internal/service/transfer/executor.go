package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
)

const (
	persistTimeout    = 10 * time.Second
	compensateTimeout = 30 * time.Second
)

// PersistenceSink stores the post-commit state of a model. Implementations
// must be idempotent: writing the same model state twice is harmless.
type PersistenceSink interface {
	PersistModel(ctx context.Context, model models.Model) error
}

// AuditSink is the append-only receipt log.
type AuditSink interface {
	AppendReceipt(ctx context.Context, receipt models.Receipt) error
}

// Executor commits carts against the ledger.
type Executor struct {
	ledger  *inventory.Ledger
	persist PersistenceSink
	audit   AuditSink
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewExecutor wires an executor. persist and audit may be nil in tools that
// only need the in-memory ledger.
func NewExecutor(ledger *inventory.Ledger, persist PersistenceSink, audit AuditSink, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		ledger:  ledger,
		persist: persist,
		audit:   audit,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Execute commits every staged line of the cart as one unit. Lines are
// re-validated against the ledger under its write lock, applied to a working
// copy, and persisted before the working copy becomes authoritative. On any
// failure the ledger is untouched and no receipt exists.
//
// A receipt append failure happens after the commit of record: the receipt is
// returned together with an *models.AuditError.
func (e *Executor) Execute(ctx context.Context, cart *Cart) (models.Receipt, error) {
	cart.mu.Lock()
	defer cart.mu.Unlock()

	if len(cart.items) == 0 {
		return models.Receipt{}, models.ErrEmptyBatch
	}
	lines := append([]models.TransferLineItem(nil), cart.items...)

	// Names are resolved before Update: the ledger's read lock is not reentrant.
	sourceName := e.ledger.LocationName(cart.Source)
	destinationName := e.ledger.LocationName(cart.Destination)

	err := e.ledger.Update(func(tx *inventory.Tx) error {
		if err := revalidate(tx, cart, lines); err != nil {
			return err
		}
		if err := apply(tx, cart, lines); err != nil {
			return err
		}
		return e.persistChanged(ctx, tx)
	})
	if err != nil {
		if errors.Is(err, models.ErrNegativeStock) {
			e.logger.Error("ledger invariant violated during commit",
				zap.String("cart_id", cart.ID), zap.Error(err))
		}
		return models.Receipt{}, err
	}
	cart.items = nil

	total := 0
	for _, line := range lines {
		total += line.Quantity
	}

	receipt := models.Receipt{
		ID:              e.newID(),
		Kind:            cart.Kind,
		Source:          cart.Source,
		SourceName:      sourceName,
		Destination:     cart.Destination,
		DestinationName: destinationName,
		Lines:           lines,
		TotalQuantity:   total,
		Actor:           cart.Actor,
		CommittedAt:     e.now(),
	}

	e.logger.Info("transfer committed",
		zap.String("receipt_id", receipt.ID),
		zap.String("kind", string(receipt.Kind)),
		zap.String("source", receipt.Source),
		zap.String("destination", receipt.Destination),
		zap.Int("lines", len(lines)),
		zap.Int("total_quantity", total))

	if e.audit != nil {
		if err := e.audit.AppendReceipt(ctx, receipt); err != nil {
			e.logger.Error("failed to append receipt", zap.String("receipt_id", receipt.ID), zap.Error(err))
			return receipt, &models.AuditError{ReceiptID: receipt.ID, Err: err}
		}
	}

	return receipt, nil
}

// Debit removes quantity of one model from one location, as a point-of-sale
// checkout does. It returns the remaining quantity.
func (e *Executor) Debit(ctx context.Context, location, modelCode string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, &models.ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be greater than 0, got %d", quantity)}
	}
	code, ok := e.ledger.ResolveModel(modelCode)
	if !ok {
		return 0, &models.ModelNotFoundError{Code: strings.TrimSpace(modelCode)}
	}
	if _, ok := e.ledger.Location(location); !ok {
		return 0, &models.LocationNotFoundError{Code: location}
	}

	var remaining int
	err := e.ledger.Update(func(tx *inventory.Tx) error {
		available := tx.GetStock(code, location)
		if available < quantity {
			return &models.InsufficientStockError{ModelCode: code, Location: location, Requested: quantity, Available: available}
		}
		var err error
		if remaining, err = tx.Adjust(code, location, -quantity); err != nil {
			return err
		}
		return e.persistChanged(ctx, tx)
	})
	if err != nil {
		return 0, err
	}

	e.logger.Info("stock debited",
		zap.String("location", location),
		zap.String("model", code),
		zap.Int("quantity", quantity),
		zap.Int("remaining", remaining))
	return remaining, nil
}

func revalidate(tx *inventory.Tx, cart *Cart, lines []models.TransferLineItem) error {
	demand := make(map[string]int, len(lines))
	for _, line := range lines {
		if !tx.HasModel(line.ModelCode) {
			return &models.ModelNotFoundError{Code: line.ModelCode}
		}
		if cart.Kind != models.StockOut {
			continue
		}
		onHand := tx.GetStock(line.ModelCode, cart.Source)
		already := demand[line.ModelCode]
		if onHand-already < line.Quantity {
			return &models.InsufficientStockError{
				ModelCode: line.ModelCode,
				Location:  cart.Source,
				Requested: line.Quantity,
				Available: onHand - already,
			}
		}
		demand[line.ModelCode] = already + line.Quantity
	}
	return nil
}

func apply(tx *inventory.Tx, cart *Cart, lines []models.TransferLineItem) error {
	for _, line := range lines {
		if cart.Kind == models.StockOut {
			if _, err := tx.Adjust(line.ModelCode, cart.Source, -line.Quantity); err != nil {
				return fmt.Errorf("debit %s: %w", line.ModelCode, err)
			}
		}
		if _, err := tx.Adjust(line.ModelCode, cart.Destination, line.Quantity); err != nil {
			return fmt.Errorf("credit %s: %w", line.ModelCode, err)
		}
	}
	return nil
}

// persistChanged writes every touched model once, each write bounded by
// persistTimeout. When a write fails, the models already written are
// re-persisted with their pre-commit state.
func (e *Executor) persistChanged(ctx context.Context, tx *inventory.Tx) error {
	if e.persist == nil {
		return nil
	}

	changed := tx.Changed()
	for i, m := range changed {
		if err := e.persistOne(ctx, m); err != nil {
			e.compensate(ctx, tx, changed[:i+1])
			return &models.PersistenceError{ModelCode: m.Code, Err: err}
		}
	}
	return nil
}

func (e *Executor) persistOne(ctx context.Context, m models.Model) error {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	return e.persist.PersistModel(ctx, m)
}

// compensate runs detached from the caller's cancellation: a request that was
// abandoned mid-commit must still have its partial writes undone.
func (e *Executor) compensate(ctx context.Context, tx *inventory.Tx, written []models.Model) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	for _, m := range written {
		original, ok := tx.Original(m.Code)
		if !ok {
			continue
		}
		if err := e.persist.PersistModel(ctx, original); err != nil {
			e.logger.Error("compensating persist failed", zap.String("model", m.Code), zap.Error(err))
		}
	}
}
