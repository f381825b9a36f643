// Package domain contains application services orchestrating domain logic by pull request.
package domain

import (
	"context"
	"fmt"
	"strings"

	"asset-fork-merge/internal/entities"
)

// maxLineageDepth bounds the walk from a fork to its root master.
const maxLineageDepth = 16

// CreatePullRequest opens a PR from a fork into the master it was cloned from.
func (u *Usecase) CreatePullRequest(ctx context.Context, pr entities.PullRequest) (*entities.PullRequest, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	pr.Title = strings.TrimSpace(pr.Title)
	if pr.SourceProjectID == "" || pr.TargetProjectID == "" || pr.CreatorID == "" || pr.Title == "" {
		return nil, fmt.Errorf("%w: missing required fields", entities.ErrInvalidArgument)
	}

	source, err := u.repo.GetProject(ctx, pr.SourceProjectID)
	if err != nil {
		return nil, storeFailure("get source project", err)
	}
	if source.ParentProjectID == nil || *source.ParentProjectID != pr.TargetProjectID {
		return nil, fmt.Errorf("%w: project %s is not a fork of %s", entities.ErrInvalidState, pr.SourceProjectID, pr.TargetProjectID)
	}
	root, err := u.rootMaster(ctx, pr.TargetProjectID)
	if err != nil {
		return nil, err
	}
	if root != pr.TargetProjectID {
		return nil, fmt.Errorf("%w: merge target %s is itself a fork", entities.ErrInvalidState, pr.TargetProjectID)
	}

	pr.ID = u.newID()
	pr.Status = entities.StatusOpen
	pr.MergedAt = nil
	pr.MergedBy = nil

	res, err := u.repo.CreatePR(ctx, pr)
	if err != nil {
		return nil, storeFailure("create pr", err)
	}
	u.log.Infow("pr create", "pr_id", res.ID, "source", res.SourceProjectID, "target", res.TargetProjectID)
	return res, nil
}

// rootMaster follows parent pointers until it reaches a project without one.
func (u *Usecase) rootMaster(ctx context.Context, projectID string) (string, error) {
	current := projectID
	for i := 0; i < maxLineageDepth; i++ {
		p, err := u.repo.GetProject(ctx, current)
		if err != nil {
			return "", storeFailure("get project", err)
		}
		if p.ParentProjectID == nil {
			return p.ID, nil
		}
		current = *p.ParentProjectID
	}
	return "", fmt.Errorf("%w: lineage of %s is deeper than %d", entities.ErrInvalidState, projectID, maxLineageDepth)
}

// PullRequest returns one PR.
func (u *Usecase) PullRequest(ctx context.Context, prID string) (*entities.PullRequest, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if prID == "" {
		return nil, fmt.Errorf("%w: pull_request_id is required", entities.ErrInvalidArgument)
	}
	pr, err := u.repo.GetPR(ctx, prID)
	if err != nil {
		return nil, storeFailure("get pr", err)
	}
	return pr, nil
}

// ListPullRequests returns PRs touching a project, optionally filtered by status.
func (u *Usecase) ListPullRequests(ctx context.Context, filter entities.PullRequestFilter) ([]entities.PullRequest, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidArgument, *filter.Status)
	}
	prs, err := u.repo.ListPRs(ctx, filter)
	if err != nil {
		return nil, storeFailure("list prs", err)
	}
	return prs, nil
}

// UpdatePullRequestStatus handles the close and reject transitions requested through a status patch.
func (u *Usecase) UpdatePullRequestStatus(ctx context.Context, prID, actorID string, status entities.PullRequestStatus) (*entities.PullRequest, error) {
	switch status {
	case entities.StatusClosed:
		return u.ClosePullRequest(ctx, prID, actorID)
	case entities.StatusRejected:
		return u.RejectPullRequest(ctx, prID, actorID)
	case entities.StatusMerged:
		return nil, fmt.Errorf("%w: use the merge operation to merge a pull request", entities.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: status %q cannot be set", entities.ErrInvalidArgument, status)
	}
}

// ClosePullRequest withdraws an open PR. Only its creator may do so.
func (u *Usecase) ClosePullRequest(ctx context.Context, prID, actorID string) (*entities.PullRequest, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	pr, err := u.openPR(ctx, prID, actorID)
	if err != nil {
		return nil, err
	}
	if pr.CreatorID != actorID {
		return nil, fmt.Errorf("%w: only the pull request creator may close it", entities.ErrForbidden)
	}
	return u.transition(ctx, pr.ID, entities.StatusClosed, actorID)
}

// RejectPullRequest declines an open PR. Only the target project's owner may do so.
func (u *Usecase) RejectPullRequest(ctx context.Context, prID, actorID string) (*entities.PullRequest, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	pr, err := u.openPR(ctx, prID, actorID)
	if err != nil {
		return nil, err
	}
	if err := u.requireTargetOwner(ctx, pr, actorID, "reject"); err != nil {
		return nil, err
	}
	return u.transition(ctx, pr.ID, entities.StatusRejected, actorID)
}

// openPR loads a PR and fails with ErrInvalidState unless it is open.
func (u *Usecase) openPR(ctx context.Context, prID, actorID string) (*entities.PullRequest, error) {
	if prID == "" || actorID == "" {
		return nil, fmt.Errorf("%w: pull_request_id and actor are required", entities.ErrInvalidArgument)
	}
	pr, err := u.repo.GetPR(ctx, prID)
	if err != nil {
		return nil, storeFailure("get pr", err)
	}
	if pr.Status != entities.StatusOpen {
		return nil, fmt.Errorf("%w: pull request is %s", entities.ErrInvalidState, pr.Status)
	}
	return pr, nil
}

func (u *Usecase) requireTargetOwner(ctx context.Context, pr *entities.PullRequest, actorID, action string) error {
	target, err := u.repo.GetProject(ctx, pr.TargetProjectID)
	if err != nil {
		return storeFailure("get target project", err)
	}
	if target.OwnerID != actorID {
		return fmt.Errorf("%w: only the target project owner may %s", entities.ErrForbidden, action)
	}
	return nil
}

func (u *Usecase) transition(ctx context.Context, prID string, to entities.PullRequestStatus, actorID string) (*entities.PullRequest, error) {
	res, err := u.repo.TransitionPR(ctx, prID, to)
	if err != nil {
		return nil, storeFailure("transition pr", err)
	}
	u.log.Infow("pr status changed", "pr_id", prID, "status", to, "actor", actorID)
	return res, nil
}
