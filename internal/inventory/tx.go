package inventory

import (
	"github.com/goldenhour/backoffice/internal/domain/models"
)

// Tx is the view of the ledger handed to View and Update callbacks. It must
// not be retained after the callback returns.
type Tx struct {
	ledger   *Ledger
	writable bool
	working  map[string]map[string]int
	touched  []string
}

// GetStock reads through the working copy first.
func (tx *Tx) GetStock(modelCode, location string) int {
	if stock, ok := tx.working[modelCode]; ok {
		return stock[location]
	}
	return tx.ledger.models[modelCode].Stock[location]
}

// HasModel reports whether the code is a known canonical model code.
func (tx *Tx) HasModel(code string) bool {
	_, ok := tx.ledger.models[code]
	return ok
}

// Location looks up a location by code.
func (tx *Tx) Location(code string) (models.Location, bool) {
	loc, ok := tx.ledger.locations[code]
	return loc, ok
}

// Adjust stages delta on the working copy and returns the staged quantity.
func (tx *Tx) Adjust(modelCode, location string, delta int) (int, error) {
	if !tx.writable {
		return 0, ErrReadOnly
	}
	base, ok := tx.ledger.models[modelCode]
	if !ok {
		return 0, &models.ModelNotFoundError{Code: modelCode}
	}
	if _, ok := tx.ledger.locations[location]; !ok {
		return 0, &models.LocationNotFoundError{Code: location}
	}

	current := tx.GetStock(modelCode, location)
	next := current + delta
	if next < 0 {
		return 0, &models.NegativeStockError{ModelCode: modelCode, Location: location, Current: current, Delta: delta}
	}

	stock, ok := tx.working[modelCode]
	if !ok {
		stock = base.Clone().Stock
		tx.working[modelCode] = stock
		tx.touched = append(tx.touched, modelCode)
	}
	stock[location] = next
	return next, nil
}

// Changed returns the staged state of every touched model in first-touch order.
func (tx *Tx) Changed() []models.Model {
	out := make([]models.Model, 0, len(tx.touched))
	for _, code := range tx.touched {
		m := tx.ledger.models[code]
		m.Stock = tx.working[code]
		out = append(out, m.Clone())
	}
	return out
}

// Original returns the committed state of a model, ignoring staged changes.
func (tx *Tx) Original(code string) (models.Model, bool) {
	m, ok := tx.ledger.models[code]
	if !ok {
		return models.Model{}, false
	}
	return m.Clone(), true
}
