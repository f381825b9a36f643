package entities

import "time"

// ReviewAction is the advisory verdict attached to a review.
type ReviewAction string

const (
	ReviewApprove        ReviewAction = "approve"
	ReviewRequestChanges ReviewAction = "request_changes"
	ReviewComment        ReviewAction = "comment"
)

// Valid reports whether a is a known review action.
func (a ReviewAction) Valid() bool {
	switch a {
	case ReviewApprove, ReviewRequestChanges, ReviewComment:
		return true
	}
	return false
}

// Comment is an immutable discussion entry on a PR.
type Comment struct {
	ID            string
	PullRequestID string
	AuthorID      string
	Body          string
	IsReview      bool
	ReviewAction  *ReviewAction
	CreatedAt     time.Time
}
