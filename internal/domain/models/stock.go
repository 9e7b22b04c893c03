package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// HQ is the reserved code of the headquarters supply location.
	HQ = "HQ"
	// HQName is the display name used for HQ on receipts.
	HQName = "HeadQuarters"
	// UnknownLocationName is shown when a location code cannot be resolved.
	UnknownLocationName = "Unknown"
	// UnknownActor is recorded when a batch is committed without an operator name.
	UnknownActor = "Unknown"
)

// MovementKind enumerates the supported stock transfer flavours.
type MovementKind string

const (
	StockIn  MovementKind = "STOCK_IN"
	StockOut MovementKind = "STOCK_OUT"
)

// ParseMovementKind accepts the canonical names as well as the short in/out aliases.
func ParseMovementKind(raw string) (MovementKind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(StockIn), "IN":
		return StockIn, nil
	case string(StockOut), "OUT":
		return StockOut, nil
	default:
		return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unsupported movement kind %q", raw)}
	}
}

// Label returns the human title printed on receipts.
func (k MovementKind) Label() string {
	switch k {
	case StockIn:
		return "Stock In"
	case StockOut:
		return "Stock Out"
	default:
		return string(k)
	}
}

// Location is a stock bearing site: HQ or one of the retail outlets.
type Location struct {
	Code string `json:"code" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// Model is a sellable product together with its per-location quantities.
type Model struct {
	Code  string          `json:"code"`
	Price decimal.Decimal `json:"price"`
	Stock map[string]int  `json:"stock"`
}

// StockAt returns the quantity on hand at the location, zero when unrecorded.
func (m Model) StockAt(location string) int {
	return m.Stock[location]
}

// Clone returns a deep copy so callers never alias the owner's stock map.
func (m Model) Clone() Model {
	stock := make(map[string]int, len(m.Stock))
	for loc, qty := range m.Stock {
		stock[loc] = qty
	}
	m.Stock = stock
	return m
}

// TransferLineItem is one staged or committed line of a transfer.
type TransferLineItem struct {
	ModelCode string `json:"model" bson:"model"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Receipt is the immutable record of a committed transfer batch.
type Receipt struct {
	ID              string             `json:"id" bson:"_id"`
	Kind            MovementKind       `json:"kind" bson:"kind"`
	Source          string             `json:"source" bson:"source"`
	SourceName      string             `json:"source_name" bson:"source_name"`
	Destination     string             `json:"destination" bson:"destination"`
	DestinationName string             `json:"destination_name" bson:"destination_name"`
	Lines           []TransferLineItem `json:"lines" bson:"lines"`
	TotalQuantity   int                `json:"total_quantity" bson:"total_quantity"`
	Actor           string             `json:"actor" bson:"actor"`
	CommittedAt     time.Time          `json:"committed_at" bson:"committed_at"`
}

// Text renders the receipt in the block format appended to the receipt log.
func (r Receipt) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", r.Kind.Label())
	fmt.Fprintf(&b, "Date: %s\n", r.CommittedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Time: %s\n", r.CommittedAt.Format("15:04:05"))
	fmt.Fprintf(&b, "From: %s (%s)\n", r.Source, r.SourceName)
	fmt.Fprintf(&b, "To: %s (%s)\n", r.Destination, r.DestinationName)
	b.WriteString("Models:\n")
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "- %s: %d\n", line.ModelCode, line.Quantity)
	}
	fmt.Fprintf(&b, "Total Quantity: %d\n", r.TotalQuantity)
	fmt.Fprintf(&b, "Employee in Charge: %s", r.Actor)
	return b.String()
}

// StockStatus classifies a quantity for the stock views.
type StockStatus string

const (
	StatusOutOfStock StockStatus = "Out of Stock"
	StatusLowStock   StockStatus = "Low Stock"
	StatusInStock    StockStatus = "In Stock"
)

// StatusFor classifies qty against the low stock threshold.
func StatusFor(qty, threshold int) StockStatus {
	switch {
	case qty <= 0:
		return StatusOutOfStock
	case qty < threshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// StockLine is one row of a location stock view.
type StockLine struct {
	ModelCode string          `json:"model"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Value     decimal.Decimal `json:"value"`
	Status    StockStatus     `json:"status"`
}

// StockView aggregates the stock lines of one location.
type StockView struct {
	Location      Location        `json:"location"`
	Lines         []StockLine     `json:"lines"`
	TotalValue    decimal.Decimal `json:"total_value"`
	LowStockCount int             `json:"low_stock_count"`
	TotalItems    int             `json:"total_items"`
}

// StockSnapshot is the persisted point-in-time stock of one location.
type StockSnapshot struct {
	Location   string         `json:"location" bson:"location"`
	TakenAt    time.Time      `json:"taken_at" bson:"taken_at"`
	Quantities map[string]int `json:"quantities" bson:"quantities"`
}

// SortedCodes returns the keys of a model->quantity map in ascending order.
func SortedCodes(quantities map[string]int) []string {
	codes := make([]string, 0, len(quantities))
	for code := range quantities {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
