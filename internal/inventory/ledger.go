// Package inventory holds the authoritative per-model, per-location stock
// quantities. Every stock mutation in the application goes through a Ledger.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

// ErrReadOnly is returned when a View transaction attempts a mutation.
var ErrReadOnly = errors.New("ledger view is read-only")

// Directory enumerates the locations and models the ledger is seeded with.
type Directory interface {
	ListLocations(ctx context.Context) ([]models.Location, error)
	ListModels(ctx context.Context) ([]models.Model, error)
}

// Ledger is the single owner of stock state. A single RWMutex serializes
// check-then-act sequences: Update holds the write lock for the whole
// callback, View holds the read lock.
type Ledger struct {
	mu        sync.RWMutex
	models    map[string]models.Model
	codes     []string
	folded    map[string]string
	locations map[string]models.Location
	locCodes  []string
}

// Load seeds a ledger from the directory collaborator.
func Load(ctx context.Context, dir Directory) (*Ledger, error) {
	locations, err := dir.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	items, err := dir.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return New(locations, items)
}

// New builds a ledger from copies of the provided records. HQ is always
// registered even when the directory omits it.
func New(locations []models.Location, items []models.Model) (*Ledger, error) {
	l := &Ledger{
		models:    make(map[string]models.Model, len(items)),
		folded:    make(map[string]string, len(items)),
		locations: make(map[string]models.Location, len(locations)+1),
	}

	l.locations[models.HQ] = models.Location{Code: models.HQ, Name: models.HQName}
	for _, loc := range locations {
		code := strings.TrimSpace(loc.Code)
		if code == "" {
			return nil, &models.ValidationError{Field: "location", Reason: "code must not be empty"}
		}
		if code == models.HQ {
			if loc.Name != "" {
				l.locations[code] = models.Location{Code: code, Name: loc.Name}
			}
			continue
		}
		if _, dup := l.locations[code]; dup {
			return nil, &models.ValidationError{Field: "location", Reason: fmt.Sprintf("duplicate code %s", code)}
		}
		l.locations[code] = models.Location{Code: code, Name: loc.Name}
	}
	for code := range l.locations {
		l.locCodes = append(l.locCodes, code)
	}
	sort.Strings(l.locCodes)

	for _, item := range items {
		code := strings.TrimSpace(item.Code)
		if code == "" {
			return nil, &models.ValidationError{Field: "model", Reason: "code must not be empty"}
		}
		key := strings.ToLower(code)
		if _, dup := l.folded[key]; dup {
			return nil, &models.ValidationError{Field: "model", Reason: fmt.Sprintf("duplicate code %s", code)}
		}
		if item.Price.IsNegative() {
			return nil, &models.ValidationError{Field: "price", Reason: fmt.Sprintf("model %s has a negative price", code)}
		}

		m := item.Clone()
		m.Code = code
		for loc, qty := range m.Stock {
			if _, ok := l.locations[loc]; !ok {
				return nil, &models.LocationNotFoundError{Code: loc}
			}
			if qty < 0 {
				return nil, &models.NegativeStockError{ModelCode: code, Location: loc, Current: qty}
			}
		}
		l.models[code] = m
		l.folded[key] = code
		l.codes = append(l.codes, code)
	}
	sort.Strings(l.codes)

	return l, nil
}

// GetStock returns the quantity of model at location, zero when unrecorded.
func (l *Ledger) GetStock(modelCode, location string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.models[modelCode].Stock[location]
}

// AdjustStock applies delta atomically and returns the new quantity. The
// ledger is unchanged when the result would be negative.
func (l *Ledger) AdjustStock(modelCode, location string, delta int) (int, error) {
	var qty int
	err := l.Update(func(tx *Tx) error {
		var err error
		qty, err = tx.Adjust(modelCode, location, delta)
		return err
	})
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// Snapshot returns an independently owned copy of every known model's
// quantity at location.
func (l *Ledger) Snapshot(location string) (map[string]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.locations[location]; !ok {
		return nil, &models.LocationNotFoundError{Code: location}
	}
	out := make(map[string]int, len(l.codes))
	for _, code := range l.codes {
		out[code] = l.models[code].Stock[location]
	}
	return out, nil
}

// ResolveModel maps a case-insensitive code to its canonical form.
func (l *Ledger) ResolveModel(code string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	canonical, ok := l.folded[strings.ToLower(strings.TrimSpace(code))]
	return canonical, ok
}

// ResolveLocation maps a location code to its canonical form. An exact match
// wins; otherwise the code is matched case-insensitively.
func (l *Ledger) ResolveLocation(code string) (string, bool) {
	code = strings.TrimSpace(code)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.locations[code]; ok {
		return code, true
	}
	for _, candidate := range l.locCodes {
		if strings.EqualFold(candidate, code) {
			return candidate, true
		}
	}
	return "", false
}

// Models returns copies of every model ordered by code.
func (l *Ledger) Models() []models.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Model, 0, len(l.codes))
	for _, code := range l.codes {
		out = append(out, l.models[code].Clone())
	}
	return out
}

// Location looks up a location by code.
func (l *Ledger) Location(code string) (models.Location, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.locations[code]
	return loc, ok
}

// Locations returns every location ordered by code, HQ included.
func (l *Ledger) Locations() []models.Location {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Location, 0, len(l.locCodes))
	for _, code := range l.locCodes {
		out = append(out, l.locations[code])
	}
	return out
}

// LocationName resolves a display name, falling back to "Unknown".
func (l *Ledger) LocationName(code string) string {
	if loc, ok := l.Location(code); ok && loc.Name != "" {
		return loc.Name
	}
	if code == models.HQ {
		return models.HQName
	}
	return models.UnknownLocationName
}

// View runs fn under the read lock. Mutations through the Tx are rejected.
func (l *Ledger) View(fn func(tx *Tx) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(&Tx{ledger: l})
}

// Update runs fn under the write lock against a working copy of the touched
// models. The working copy replaces the authoritative state only when fn
// returns nil; any error leaves the ledger exactly as it was.
func (l *Ledger) Update(fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{ledger: l, writable: true, working: make(map[string]map[string]int)}
	if err := fn(tx); err != nil {
		return err
	}

	for code, stock := range tx.working {
		m := l.models[code]
		m.Stock = stock
		l.models[code] = m
	}
	return nil
}
