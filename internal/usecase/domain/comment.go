// Package domain contains application services orchestrating domain logic by comment.
package domain

import (
	"context"
	"fmt"
	"strings"

	"asset-fork-merge/internal/entities"
)

// AddComment posts a discussion comment on an open PR.
func (u *Usecase) AddComment(ctx context.Context, prID, authorID, body string) (*entities.Comment, error) {
	return u.addComment(ctx, prID, authorID, body, nil)
}

// AddReview posts an advisory review on an open PR. Reviews never gate a merge.
func (u *Usecase) AddReview(ctx context.Context, prID, authorID, body string, action entities.ReviewAction) (*entities.Comment, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown review action %q", entities.ErrInvalidArgument, action)
	}
	return u.addComment(ctx, prID, authorID, body, &action)
}

func (u *Usecase) addComment(ctx context.Context, prID, authorID, body string, action *entities.ReviewAction) (*entities.Comment, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	body = strings.TrimSpace(body)
	if prID == "" || authorID == "" {
		return nil, fmt.Errorf("%w: pull_request_id and author are required", entities.ErrInvalidArgument)
	}
	if body == "" && action == nil {
		return nil, fmt.Errorf("%w: comment body is required", entities.ErrInvalidArgument)
	}

	res, err := u.repo.CreateComment(ctx, entities.Comment{
		ID:            u.newID(),
		PullRequestID: prID,
		AuthorID:      authorID,
		Body:          body,
		IsReview:      action != nil,
		ReviewAction:  action,
	})
	if err != nil {
		return nil, storeFailure("create comment", err)
	}
	u.log.Infow("comment added", "pr_id", prID, "comment_id", res.ID, "review", res.IsReview)
	return res, nil
}

// ListComments returns a PR's comments and reviews oldest first.
func (u *Usecase) ListComments(ctx context.Context, prID string) ([]entities.Comment, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if prID == "" {
		return nil, fmt.Errorf("%w: pull_request_id is required", entities.ErrInvalidArgument)
	}
	res, err := u.repo.ListComments(ctx, prID)
	if err != nil {
		return nil, storeFailure("list comments", err)
	}
	return res, nil
}
