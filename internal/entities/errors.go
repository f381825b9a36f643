// Package entities contains core business entities and errors.
package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals failed input validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProjectNotFound is returned when a project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrEntityNotFound is returned when a lineage-bearing entity does not exist.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrPRNotFound signals missing PR.
	ErrPRNotFound = errors.New("pr not found")
	// ErrForbidden signals that the actor lacks the role required for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState signals an action not valid for the current PR or project state.
	ErrInvalidState = errors.New("invalid state")
	// ErrPRExists signals duplicate PR id.
	ErrPRExists = errors.New("pr exists")
	// ErrTransactionFailure signals that the store rejected an atomic read or apply.
	ErrTransactionFailure = errors.New("transaction failure")
	// ErrStaleTarget signals that a target row changed between diff and apply.
	ErrStaleTarget = errors.New("target changed since diff")
)

// ConflictsPendingError aborts a merge until every reported conflict has a resolution.
// It is a retry signal rather than a hard failure: the PR stays open.
type ConflictsPendingError struct {
	Conflicts []Conflict
}

func (e *ConflictsPendingError) Error() string {
	return fmt.Sprintf("conflicts pending: %d unresolved", len(e.Conflicts))
}

// AsConflictsPending extracts a ConflictsPendingError from an error chain.
func AsConflictsPending(err error) (*ConflictsPendingError, bool) {
	var pending *ConflictsPendingError
	if errors.As(err, &pending) {
		return pending, true
	}
	return nil, false
}
