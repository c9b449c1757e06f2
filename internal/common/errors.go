// Package common defines sentinel errors and the error kinds shared by the
// repositories, the upload lifecycle and the HTTP layer. Callers should use
// errors.Is / errors.As to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrNotPending is returned by conditional task transitions when the row
	// is gone or already terminal.
	ErrNotPending = errors.New("task is not pending")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Tenant resolution errors.
	ErrMissingTenantID  = errors.New("tenant id is required")
	ErrInvalidTenantID  = errors.New("tenant id must be a valid uuid")
	ErrMissingTenantEnv = errors.New("tenant env is required")
)
