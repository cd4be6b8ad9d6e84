package archive

import (
	"errors"
	"fmt"
)

// ArchiveError represents a structural failure during export or import.
//
// Structural failures are the ones that abort the whole operation:
// unreadable or invalid manifest, checksum mismatch, malformed envelope
// or record, or a transaction-level failure. They are distinct from
// unresolved-reference skips, which are reported as warnings on the
// ImportSummary and never produce an error.
type ArchiveError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Phase is where the operation was when it failed.
	Phase Phase

	// EntityType names the affected entity type, when known.
	EntityType string

	// File is the archive file involved, when known.
	File string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// ErrorCode categorizes structural archive failures.
type ErrorCode string

const (
	// ErrCodeManifest indicates the manifest is missing or invalid.
	ErrCodeManifest ErrorCode = "MANIFEST_INVALID"

	// ErrCodeFile indicates an entity file named by the manifest could
	// not be read.
	ErrCodeFile ErrorCode = "FILE_UNREADABLE"

	// ErrCodeChecksum indicates file bytes do not match the manifest
	// checksum.
	ErrCodeChecksum ErrorCode = "CHECKSUM_MISMATCH"

	// ErrCodeEnvelope indicates an entity file is malformed or
	// disagrees with the manifest.
	ErrCodeEnvelope ErrorCode = "ENVELOPE_INVALID"

	// ErrCodeRecord indicates a record could not be decoded or
	// inserted.
	ErrCodeRecord ErrorCode = "RECORD_INVALID"

	// ErrCodeTx indicates the import transaction could not begin or
	// commit.
	ErrCodeTx ErrorCode = "TX_FAILED"
)

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	switch {
	case e.EntityType != "" && e.File != "":
		return fmt.Sprintf("%s: %s (entity=%s, file=%s, phase=%s)", e.Code, msg, e.EntityType, e.File, e.Phase)
	case e.File != "":
		return fmt.Sprintf("%s: %s (file=%s, phase=%s)", e.Code, msg, e.File, e.Phase)
	default:
		return fmt.Sprintf("%s: %s (phase=%s)", e.Code, msg, e.Phase)
	}
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// AsArchiveError extracts an ArchiveError from a wrapped error chain.
func AsArchiveError(err error) (*ArchiveError, bool) {
	var ae *ArchiveError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsChecksumMismatch returns true if the error is a checksum failure.
// Uses errors.As to handle wrapped errors.
func IsChecksumMismatch(err error) bool {
	if ae, ok := AsArchiveError(err); ok {
		return ae.Code == ErrCodeChecksum
	}
	return false
}

// RegistryError reports an invalid entity type registration.
type RegistryError struct {
	// EntityType is the type being registered or validated.
	EntityType string

	// Dependency is the offending dependency, for dependency problems.
	Dependency string

	// Reason categorizes the problem.
	Reason RegistryErrorReason
}

// RegistryErrorReason categorizes registration failures.
type RegistryErrorReason string

const (
	// ReasonDuplicateType: the entity type is already registered.
	ReasonDuplicateType RegistryErrorReason = "DUPLICATE_TYPE"

	// ReasonDuplicateOrder: another type already claims this import order.
	ReasonDuplicateOrder RegistryErrorReason = "DUPLICATE_ORDER"

	// ReasonInvalidOrder: import order must be positive.
	ReasonInvalidOrder RegistryErrorReason = "INVALID_ORDER"

	// ReasonInvalidType: the entity type name is empty or malformed.
	ReasonInvalidType RegistryErrorReason = "INVALID_TYPE"

	// ReasonSelfDependency: a type cannot depend on itself.
	ReasonSelfDependency RegistryErrorReason = "SELF_DEPENDENCY"

	// ReasonUnknownDependency: a dependency names an unregistered type.
	ReasonUnknownDependency RegistryErrorReason = "UNKNOWN_DEPENDENCY"

	// ReasonOrderConflict: a dependency's import order is not strictly
	// below the dependent's. The declared integers must agree with
	// every declared edge.
	ReasonOrderConflict RegistryErrorReason = "ORDER_CONFLICT"

	// ReasonSealed: the registry no longer accepts registrations.
	ReasonSealed RegistryErrorReason = "REGISTRY_SEALED"
)

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Dependency != "" {
		return fmt.Sprintf("%s: entity type %q, dependency %q", e.Reason, e.EntityType, e.Dependency)
	}
	return fmt.Sprintf("%s: entity type %q", e.Reason, e.EntityType)
}

// IsRegistryError returns true if err is a RegistryError with the
// given reason.
func IsRegistryError(err error, reason RegistryErrorReason) bool {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Reason == reason
	}
	return false
}
