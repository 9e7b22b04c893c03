package models

import (
	"fmt"
	"strings"
	"time"
)

// CountType tags a count session as the opening or the closing check.
type CountType string

const (
	CountMorning CountType = "MORNING"
	CountNight   CountType = "NIGHT"
)

// ParseCountType defaults to a morning count when raw is empty.
func ParseCountType(raw string) (CountType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(CountMorning):
		return CountMorning, nil
	case string(CountNight):
		return CountNight, nil
	default:
		return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unsupported count type %q", raw)}
	}
}

// Label is the display form used in summaries.
func (t CountType) Label() string {
	if t == CountNight {
		return "Night"
	}
	return "Morning"
}

// CountEntry pairs the frozen system quantity with the operator's physical count.
type CountEntry struct {
	ModelCode   string `json:"model"`
	SystemQty   int    `json:"system_qty"`
	PhysicalQty int    `json:"physical_qty"`
	Counted     bool   `json:"counted"`
}

// CountResult is one classified row of a count report.
type CountResult struct {
	ModelCode   string `json:"model" bson:"model"`
	SystemQty   int    `json:"system_qty" bson:"system_qty"`
	PhysicalQty int    `json:"physical_qty" bson:"physical_qty"`
	Counted     bool   `json:"counted" bson:"counted"`
	Match       bool   `json:"match" bson:"match"`
	Diff        int    `json:"diff" bson:"diff"`
}

// CountReport summarises a finalized count session.
type CountReport struct {
	SessionID  string        `json:"session_id" bson:"_id"`
	Location   string        `json:"location" bson:"location"`
	Type       CountType     `json:"type" bson:"type"`
	StartedAt  time.Time     `json:"started_at" bson:"started_at"`
	Results    []CountResult `json:"results" bson:"results"`
	Total      int           `json:"total" bson:"total"`
	Matches    int           `json:"matches" bson:"matches"`
	Mismatches int           `json:"mismatches" bson:"mismatches"`
	Uncounted  int           `json:"uncounted" bson:"uncounted"`
}
