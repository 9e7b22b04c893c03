package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrModelNotFound     = errors.New("model not found")
	ErrLocationNotFound  = errors.New("location not found")
	ErrSameLocation      = errors.New("source and destination are the same")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyBatch        = errors.New("transfer list is empty")
	ErrNegativeStock     = errors.New("stock would become negative")
	ErrPersistence       = errors.New("persistence failed")
	ErrAudit             = errors.New("audit append failed")

	ErrCartNotFound      = errors.New("cart not found")
	ErrCartInUse         = errors.New("a cart is already open for this route")
	ErrSessionNotFound   = errors.New("count session not found")
	ErrInvalidTransition = errors.New("invalid count workflow transition")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ModelNotFoundError names the unknown model code.
type ModelNotFoundError struct {
	Code string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %s not found", e.Code)
}

func (e *ModelNotFoundError) Is(target error) bool { return target == ErrModelNotFound }

// LocationNotFoundError names the unknown location code.
type LocationNotFoundError struct {
	Code string
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("location %s not found", e.Code)
}

func (e *LocationNotFoundError) Is(target error) bool { return target == ErrLocationNotFound }

// SameLocationError is returned when a transfer would start and end at one location.
type SameLocationError struct {
	Code string
}

func (e *SameLocationError) Error() string {
	return fmt.Sprintf("source and destination cannot both be %s", e.Code)
}

func (e *SameLocationError) Is(target error) bool { return target == ErrSameLocation }

// InsufficientStockError carries what was asked for and what the source can give.
type InsufficientStockError struct {
	ModelCode string
	Location  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %s at %s: requested %d, available %d",
		e.ModelCode, e.Location, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// NegativeStockError is the ledger's internal guard against going below zero.
type NegativeStockError struct {
	ModelCode string
	Location  string
	Current   int
	Delta     int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("stock of %s at %s would become negative: current %d, delta %d",
		e.ModelCode, e.Location, e.Current, e.Delta)
}

func (e *NegativeStockError) Is(target error) bool { return target == ErrNegativeStock }

// PersistenceError wraps a failure of the persistence sink for one model.
type PersistenceError struct {
	ModelCode string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist model %s: %v", e.ModelCode, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// AuditError reports a failed receipt append after the ledger commit already happened.
type AuditError struct {
	ReceiptID string
	Err       error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("append receipt %s: %v", e.ReceiptID, e.Err)
}

func (e *AuditError) Unwrap() error { return e.Err }

func (e *AuditError) Is(target error) bool { return target == ErrAudit }
