package transfer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
)

type route struct {
	source      string
	destination string
}

// Service keeps the open carts and exposes the operations the HTTP layer
// calls. At most one cart may be open per (source, destination) route so two
// operators cannot stage the same stock independently.
type Service struct {
	ledger   *inventory.Ledger
	executor *Executor
	logger   *zap.Logger

	mu     sync.Mutex
	carts  map[string]*Cart
	routes map[route]string
}

// NewService wires the cart registry.
func NewService(ledger *inventory.Ledger, executor *Executor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:   ledger,
		executor: executor,
		logger:   logger,
		carts:    make(map[string]*Cart),
		routes:   make(map[route]string),
	}
}

// OpenCart creates a cart for the transfer context.
func (s *Service) OpenCart(kind models.MovementKind, source, destination, actor string) (*Cart, error) {
	cart, err := NewCart(s.ledger, kind, source, destination, actor)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := route{source: cart.Source, destination: cart.Destination}
	if _, busy := s.routes[key]; busy {
		return nil, models.ErrCartInUse
	}
	cart.ID = uuid.NewString()
	s.carts[cart.ID] = cart
	s.routes[key] = cart.ID

	s.logger.Debug("cart opened",
		zap.String("cart_id", cart.ID),
		zap.String("kind", string(cart.Kind)),
		zap.String("source", cart.Source),
		zap.String("destination", cart.Destination),
		zap.String("actor", cart.Actor))
	return cart, nil
}

// Cart looks up an open cart.
func (s *Service) Cart(id string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[id]
	if !ok {
		return nil, models.ErrCartNotFound
	}
	return cart, nil
}

// AddToCart stages a line on an open cart.
func (s *Service) AddToCart(id, modelCode string, quantity int) (models.TransferLineItem, error) {
	cart, err := s.Cart(id)
	if err != nil {
		return models.TransferLineItem{}, err
	}
	return cart.AddItem(modelCode, quantity)
}

// RemoveFromCart drops a staged line.
func (s *Service) RemoveFromCart(id string, index int) error {
	cart, err := s.Cart(id)
	if err != nil {
		return err
	}
	return cart.RemoveItem(index)
}

// DiscardCart clears and closes a cart. Nothing was committed, so nothing is undone.
func (s *Service) DiscardCart(id string) error {
	cart, err := s.Cart(id)
	if err != nil {
		return err
	}
	cart.Clear()
	s.close(cart)
	return nil
}

// CommitCart executes the cart and closes it once the ledger commit succeeded.
// An audit failure still closes the cart because the stock already moved.
func (s *Service) CommitCart(ctx context.Context, id string) (models.Receipt, error) {
	cart, err := s.Cart(id)
	if err != nil {
		return models.Receipt{}, err
	}

	receipt, err := s.executor.Execute(ctx, cart)
	if err != nil && !errors.Is(err, models.ErrAudit) {
		return models.Receipt{}, err
	}
	s.close(cart)
	return receipt, err
}

// RecordSale debits stock sold at a location.
func (s *Service) RecordSale(ctx context.Context, location, modelCode string, quantity int) (int, error) {
	return s.executor.Debit(ctx, location, modelCode, quantity)
}

// OpenCarts returns the number of carts currently staged.
func (s *Service) OpenCarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *Service) close(cart *Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cart.ID)
	key := route{source: cart.Source, destination: cart.Destination}
	if s.routes[key] == cart.ID {
		delete(s.routes, key)
	}
}
