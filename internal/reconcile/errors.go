package reconcile

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	codeParentNotFound  = "RECONCILE_PARENT_NOT_FOUND"
	codeInvalidRequest  = "RECONCILE_INVALID_REQUEST"
	codeDuplicateID     = "RECONCILE_DUPLICATE_ID"
	codeForeignID       = "RECONCILE_FOREIGN_ID"
	codeVersionMismatch = "RECONCILE_VERSION_MISMATCH"
	codeStorageFailure  = "RECONCILE_STORAGE_FAILURE"
)

var (
	ErrParentNotFound  = errors.New("reconcile: parent not found")
	ErrInvalidRequest  = errors.New("reconcile: invalid request")
	ErrDuplicateID     = errors.New("reconcile: duplicate id in submission")
	ErrForeignID       = errors.New("reconcile: id not owned by owner")
	ErrVersionMismatch = errors.New("reconcile: version mismatch")
	ErrStorageFailure  = errors.New("reconcile: storage failure")
)

// DuplicateIDError reports an id submitted more than once in one collection.
type DuplicateIDError struct {
	Collection string
	OwnerID    uuid.UUID
	ID         uuid.UUID
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("reconcile: id %s submitted more than once in %s of %s", e.ID, e.Collection, e.OwnerID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// ForeignIDError reports a submitted id that the owner does not hold in that
// collection, either because it never existed or because it belongs to a
// different owner.
type ForeignIDError struct {
	Collection string
	OwnerID    uuid.UUID
	ID         uuid.UUID
}

func (e *ForeignIDError) Error() string {
	return fmt.Sprintf("reconcile: %s %s is not owned by %s", e.Collection, e.ID, e.OwnerID)
}

func (e *ForeignIDError) Unwrap() error { return ErrForeignID }

// VersionMismatchError reports a stale diff base.
type VersionMismatchError struct {
	ParentID uuid.UUID
	Expected int64
	Actual   int64
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("reconcile: parent %s is at version %d, expected %d", e.ParentID, e.Actual, e.Expected)
}

func (e *VersionMismatchError) Unwrap() error { return ErrVersionMismatch }

// classify tags err with the go-errors category matching the failure. Errors
// that are already categorised pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, ErrParentNotFound):
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "parent not found").
			WithTextCode(codeParentNotFound)
	case errors.Is(err, ErrInvalidRequest):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid reconcile request").
			WithTextCode(codeInvalidRequest)
	case errors.Is(err, ErrDuplicateID):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "duplicate id in submission").
			WithTextCode(codeDuplicateID)
	case errors.Is(err, ErrForeignID):
		return goerrors.Wrap(err, goerrors.CategoryConflict, "submitted id not owned by parent").
			WithTextCode(codeForeignID)
	case errors.Is(err, ErrVersionMismatch):
		return goerrors.Wrap(err, goerrors.CategoryConflict, "stale version").
			WithTextCode(codeVersionMismatch)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return goerrors.Wrap(fmt.Errorf("%w: %w", ErrStorageFailure, err), goerrors.CategoryInternal, "reconcile failed").
			WithTextCode(codeStorageFailure)
	}
}

// IsNotFound reports whether err is a missing parent failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrParentNotFound) }

// IsConflict reports whether err was caused by a foreign id or a stale version.
func IsConflict(err error) bool {
	return errors.Is(err, ErrForeignID) || errors.Is(err, ErrVersionMismatch)
}

// IsValidation reports whether err was caused by a malformed request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrDuplicateID)
}

// IsStorageFailure reports whether the transaction failed to commit.
func IsStorageFailure(err error) bool { return errors.Is(err, ErrStorageFailure) }
