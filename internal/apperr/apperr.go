// Package apperr defines the error kinds returned by storefront operations.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when an entity is absent or not visible to the actor
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: id=%d", e.Entity, e.ID)
}

// Is allows proper error type checking with errors.Is()
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ForbiddenError is returned when the actor lacks ownership or role
type ForbiddenError struct {
	ActorID int64
	Reason  string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: actor=%d, reason=%s", e.ActorID, e.Reason)
}

// Is allows proper error type checking with errors.Is()
func (e *ForbiddenError) Is(target error) bool {
	_, ok := target.(*ForbiddenError)
	return ok
}

// ValidationError is returned for malformed or out-of-range input
type ValidationError struct {
	Field  string
	Reason string
	Value  interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: field=%s, reason=%s, value=%v", e.Field, e.Reason, e.Value)
}

// Is allows proper error type checking with errors.Is()
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ConflictError is returned when a unique pair already exists
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// Is allows proper error type checking with errors.Is()
func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}

// InsufficientStockError is returned when a requested quantity exceeds stock
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: product=%d, requested=%d, available=%d", e.ProductID, e.Requested, e.Available)
}

// Is allows proper error type checking with errors.Is()
func (e *InsufficientStockError) Is(target error) bool {
	_, ok := target.(*InsufficientStockError)
	return ok
}

// TransientError wraps a store-level failure (serialization conflict,
// deadlock) after which the whole operation may be retried once.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is allows proper error type checking with errors.Is()
func (e *TransientError) Is(target error) bool {
	_, ok := target.(*TransientError)
	return ok
}

// NewNotFound creates a new NotFoundError
func NewNotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewForbidden creates a new ForbiddenError
func NewForbidden(actorID int64, reason string) error {
	return &ForbiddenError{ActorID: actorID, Reason: reason}
}

// NewValidation creates a new ValidationError
func NewValidation(field, reason string, value interface{}) error {
	return &ValidationError{Field: field, Reason: reason, Value: value}
}

// NewConflict creates a new ConflictError
func NewConflict(reason string) error {
	return &ConflictError{Reason: reason}
}

// NewInsufficientStock creates a new InsufficientStockError
func NewInsufficientStock(productID int64, requested, available int) error {
	return &InsufficientStockError{ProductID: productID, Requested: requested, Available: available}
}

// NewTransient creates a new TransientError
func NewTransient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsForbidden checks if an error is a ForbiddenError
func IsForbidden(err error) bool {
	var e *ForbiddenError
	return errors.As(err, &e)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsConflict checks if an error is a ConflictError
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsInsufficientStock checks if an error is an InsufficientStockError
func IsInsufficientStock(err error) bool {
	var e *InsufficientStockError
	return errors.As(err, &e)
}

// IsTransient checks if an error is a TransientError
func IsTransient(err error) bool {
	var e *TransientError
	return errors.As(err, &e)
}
