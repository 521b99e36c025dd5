package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrHasDependentRecords = errors.New("has dependent sales records")
	ErrSelfDeletion        = errors.New("cannot delete the current user")
	ErrDatabaseUnavailable = errors.New("database unavailable")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DependentRecordsError blocks a delete while sales records still
// reference the entity.
type DependentRecordsError struct {
	Entity string
	Count  int64
}

func (e *DependentRecordsError) Error() string {
	return fmt.Sprintf("cannot delete %s: %d related sales records exist", e.Entity, e.Count)
}

func (e *DependentRecordsError) Unwrap() error { return ErrHasDependentRecords }
