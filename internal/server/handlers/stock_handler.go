package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goldenhour/backoffice/internal/inventory"
	"github.com/goldenhour/backoffice/internal/service/reporting"
)

// StockHandler serves read-only views of the ledger.
type StockHandler struct {
	ledger    *inventory.Ledger
	reporting *reporting.Service
}

// NewStockHandler constructs the stock view handler.
func NewStockHandler(ledger *inventory.Ledger, reporting *reporting.Service) *StockHandler {
	return &StockHandler{ledger: ledger, reporting: reporting}
}

// ListLocations returns every location, HQ included.
func (h *StockHandler) ListLocations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"locations": h.ledger.Locations()})
}

// ListModels returns every model with its stock per location.
func (h *StockHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.ledger.Models()})
}

// LocationStock returns the stock view of one location, filtered by ?q=.
func (h *StockHandler) LocationStock(c *gin.Context) {
	view, err := h.reporting.StockView(c.Param("code"), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
