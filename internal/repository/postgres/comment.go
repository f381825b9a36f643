package postgres

import (
	"context"
	"errors"
	"fmt"

	"asset-fork-merge/internal/entities"

	"github.com/jackc/pgx/v5"
)

const (
	selectPRStatusForShareQuery = `SELECT status FROM pull_requests WHERE id=$1 FOR SHARE`
	insertCommentQuery          = `INSERT INTO pr_comments(id, pull_request_id, author_id, body, is_review, review_action)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at`
	listCommentsQuery = `SELECT id, pull_request_id, author_id, body, is_review, review_action, created_at
		FROM pr_comments WHERE pull_request_id=$1 ORDER BY created_at, id`
)

// CreateComment stores a comment while the pull request is open.
func (p *Postgres) CreateComment(ctx context.Context, comment entities.Comment) (*entities.Comment, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// FOR SHARE keeps a concurrent transition from slipping in before the insert.
	var status string
	if err := tx.QueryRow(ctx, selectPRStatusForShareQuery, comment.PullRequestID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrPRNotFound
		}
		p.log.Errorw("failed to lock pull request", "error", err, "pr_id", comment.PullRequestID)
		return nil, fmt.Errorf("get pr: %w", err)
	}
	if entities.PullRequestStatus(status) != entities.StatusOpen {
		return nil, fmt.Errorf("%w: pull request is %s", entities.ErrInvalidState, status)
	}

	var action *string
	if comment.ReviewAction != nil {
		a := string(*comment.ReviewAction)
		action = &a
	}
	if err := tx.QueryRow(ctx, insertCommentQuery,
		comment.ID, comment.PullRequestID, comment.AuthorID, comment.Body, comment.IsReview, action,
	).Scan(&comment.CreatedAt); err != nil {
		p.log.Errorw("failed to insert comment", "error", err, "pr_id", comment.PullRequestID)
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments returns a pull request's comments, oldest first.
func (p *Postgres) ListComments(ctx context.Context, prID string) ([]entities.Comment, error) {
	var exists bool
	if err := p.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pull_requests WHERE id=$1)`, prID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get pr: %w", err)
	}
	if !exists {
		return nil, entities.ErrPRNotFound
	}

	rows, err := p.db.Query(ctx, listCommentsQuery, prID)
	if err != nil {
		p.log.Errorw("failed to list comments", "error", err, "pr_id", prID)
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]entities.Comment, 0)
	for rows.Next() {
		var c entities.Comment
		var action *string
		if err := rows.Scan(&c.ID, &c.PullRequestID, &c.AuthorID, &c.Body, &c.IsReview, &action, &c.CreatedAt); err != nil {
			return nil, err
		}
		if action != nil {
			a := entities.ReviewAction(*action)
			c.ReviewAction = &a
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
