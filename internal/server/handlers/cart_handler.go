package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/service/transfer"
)

// CartHandler exposes the transfer cart workflow and sale debits.
type CartHandler struct {
	svc    *transfer.Service
	logger *zap.Logger
}

// NewCartHandler constructs the cart handler.
func NewCartHandler(svc *transfer.Service, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{svc: svc, logger: logger}
}

type openCartRequest struct {
	Kind        string `json:"kind" binding:"required"`
	Source      string `json:"source"`
	Destination string `json:"destination" binding:"required"`
	Actor       string `json:"actor"`
}

type addItemRequest struct {
	Model    string `json:"model" binding:"required"`
	Quantity int    `json:"quantity"`
}

type saleRequest struct {
	Location string `json:"location" binding:"required"`
	Model    string `json:"model" binding:"required"`
	Quantity int    `json:"quantity"`
}

type cartResponse struct {
	ID          string                    `json:"id"`
	Kind        models.MovementKind       `json:"kind"`
	Source      string                    `json:"source"`
	Destination string                    `json:"destination"`
	Actor       string                    `json:"actor"`
	OpenedAt    time.Time                 `json:"opened_at"`
	Items       []models.TransferLineItem `json:"items"`
}

func newCartResponse(cart *transfer.Cart) cartResponse {
	items := cart.Items()
	if items == nil {
		items = []models.TransferLineItem{}
	}
	return cartResponse{
		ID:          cart.ID,
		Kind:        cart.Kind,
		Source:      cart.Source,
		Destination: cart.Destination,
		Actor:       cart.Actor,
		OpenedAt:    cart.OpenedAt,
		Items:       items,
	}
}

// Open starts a cart for a (kind, source, destination) route.
func (h *CartHandler) Open(c *gin.Context) {
	var req openCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	kind, err := models.ParseMovementKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}

	cart, err := h.svc.OpenCart(kind, req.Source, req.Destination, req.Actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCartResponse(cart))
}

// Get returns the staged lines of a cart.
func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.svc.Cart(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// AddItem stages one line.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if _, err := h.svc.AddToCart(c.Param("id"), req.Model, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	h.Get(c)
}

// RemoveItem drops a staged line by its zero-based index.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, &models.ValidationError{Field: "index", Reason: "must be an integer"})
		return
	}
	if err := h.svc.RemoveFromCart(c.Param("id"), index); err != nil {
		respondError(c, err)
		return
	}
	h.Get(c)
}

// Discard clears and closes a cart.
func (h *CartHandler) Discard(c *gin.Context) {
	if err := h.svc.DiscardCart(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Commit executes the cart. A receipt log failure after the commit still
// returns the receipt with a warning.
func (h *CartHandler) Commit(c *gin.Context) {
	receipt, err := h.svc.CommitCart(c.Request.Context(), c.Param("id"))
	if err != nil && !errors.Is(err, models.ErrAudit) {
		if errors.Is(err, models.ErrPersistence) || errors.Is(err, models.ErrNegativeStock) {
			h.logger.Error("commit failed", zap.String("cart_id", c.Param("id")), zap.Error(err))
		}
		respondError(c, err)
		return
	}

	body := gin.H{"receipt": receipt, "text": receipt.Text()}
	if err != nil {
		body["warning"] = err.Error()
	}
	c.JSON(http.StatusCreated, body)
}

// RecordSale debits stock sold at a location.
func (h *CartHandler) RecordSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	remaining, err := h.svc.RecordSale(c.Request.Context(), req.Location, req.Model, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": req.Location, "model": req.Model, "remaining": remaining})
}
