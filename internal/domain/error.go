package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Activation-key lifecycle errors. Used and revoked are both terminal
	// states; the distinction matters to callers so they stay separate.
	ErrKeyAlreadyConsumed = errors.New("activation key already used")
	ErrKeyRevoked         = errors.New("activation key revoked")
	ErrAlreadyRevoked     = errors.New("activation key already revoked")

	// ErrGrantFailed marks a redemption whose key transition committed but
	// whose subscription grant did not. The key stays consumed; the failure
	// is queued for manual reconciliation.
	ErrGrantFailed = errors.New("subscription grant failed after key was consumed")

	// Group / tab errors
	ErrUnknownTab    = errors.New("unknown feature tab")
	ErrGroupNotEmpty = errors.New("group still has member principals")

	// ErrStorageFailure wraps infrastructure-level persistence failures.
	ErrStorageFailure = errors.New("storage failure")

	ErrInvalidExecContext = errors.New("invalid database execution context")
)
