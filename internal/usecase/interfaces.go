package usecase

import (
	"context"

	"asset-fork-merge/internal/entities"
)

// ProjectUsecaseInterface abstracts project registration and cloning.
type ProjectUsecaseInterface interface {
	CreateProject(ctx context.Context, project entities.Project) (*entities.Project, error)
	Project(ctx context.Context, projectID string) (*entities.ProjectGraph, error)
	CloneProject(ctx context.Context, masterID, title, description, ownerID string) (*entities.Project, error)
}

// PullRequestUsecaseInterface abstracts PR lifecycle operations.
type PullRequestUsecaseInterface interface {
	CreatePullRequest(ctx context.Context, pr entities.PullRequest) (*entities.PullRequest, error)
	PullRequest(ctx context.Context, prID string) (*entities.PullRequest, error)
	ListPullRequests(ctx context.Context, filter entities.PullRequestFilter) ([]entities.PullRequest, error)
	UpdatePullRequestStatus(ctx context.Context, prID, actorID string, status entities.PullRequestStatus) (*entities.PullRequest, error)
	ClosePullRequest(ctx context.Context, prID, actorID string) (*entities.PullRequest, error)
	RejectPullRequest(ctx context.Context, prID, actorID string) (*entities.PullRequest, error)
}

// CommentUsecaseInterface abstracts PR discussion.
type CommentUsecaseInterface interface {
	AddComment(ctx context.Context, prID, authorID, body string) (*entities.Comment, error)
	AddReview(ctx context.Context, prID, authorID, body string, action entities.ReviewAction) (*entities.Comment, error)
	ListComments(ctx context.Context, prID string) ([]entities.Comment, error)
}

// DiffUsecaseInterface abstracts diff computation.
type DiffUsecaseInterface interface {
	Diff(ctx context.Context, prID string) (*entities.Diff, error)
}

// MergeUsecaseInterface abstracts the merge operation.
type MergeUsecaseInterface interface {
	MergePullRequest(ctx context.Context, prID, actorID string, resolutions []entities.Resolution) (*entities.MergeResult, error)
}
