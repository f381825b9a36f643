// Package entities contains core business entities.
package entities

import "time"

// PullRequestStatus enumerates PR lifecycle states.
type PullRequestStatus string

const (
	// StatusOpen marks PR as open.
	StatusOpen PullRequestStatus = "open"
	// StatusMerged marks PR as merged.
	StatusMerged PullRequestStatus = "merged"
	// StatusRejected marks PR as rejected by the target owner.
	StatusRejected PullRequestStatus = "rejected"
	// StatusClosed marks PR as withdrawn by its creator.
	StatusClosed PullRequestStatus = "closed"
)

// Valid reports whether s is a known status.
func (s PullRequestStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusMerged, StatusRejected, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s PullRequestStatus) Terminal() bool {
	return s == StatusMerged || s == StatusRejected || s == StatusClosed
}

// PullRequest proposes merging a fork's changes into its master.
type PullRequest struct {
	ID              string
	SourceProjectID string
	TargetProjectID string
	CreatorID       string
	Title           string
	Description     string
	Status          PullRequestStatus
	CreatedAt       time.Time
	MergedAt        *time.Time
	MergedBy        *string
}

// PullRequestFilter narrows PR listings. ProjectID matches either side.
type PullRequestFilter struct {
	ProjectID string
	Status    *PullRequestStatus
}
