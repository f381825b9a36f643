package postgres

import (
	"context"
	"errors"
	"fmt"

	"asset-fork-merge/internal/entities"

	"github.com/jackc/pgx/v5"
)

const (
	prColumns     = `id, source_project_id, target_project_id, creator_id, title, description, status, created_at, merged_at, merged_by`
	insertPRQuery = `INSERT INTO pull_requests(id, source_project_id, target_project_id, creator_id, title, description, status)
		VALUES ($1,$2,$3,$4,$5,$6,'open') RETURNING ` + prColumns
	selectPRQuery          = `SELECT ` + prColumns + ` FROM pull_requests WHERE id=$1`
	selectPRForUpdateQuery = selectPRQuery + ` FOR UPDATE`
	listPRsQuery           = `SELECT ` + prColumns + ` FROM pull_requests
		WHERE ($1 = '' OR source_project_id=$1 OR target_project_id=$1) AND ($2::text IS NULL OR status=$2)
		ORDER BY created_at DESC, id`
	transitionPRQuery = `UPDATE pull_requests SET status=$2 WHERE id=$1 AND status='open' RETURNING ` + prColumns
	updatePRMergedQuery = `UPDATE pull_requests SET status='merged', merged_at=NOW(), merged_by=$2
		WHERE id=$1 AND status='open' RETURNING ` + prColumns
	prStatusQuery = `SELECT status FROM pull_requests WHERE id=$1`
)

// CreatePR stores a new open pull request.
func (p *Postgres) CreatePR(ctx context.Context, pr entities.PullRequest) (*entities.PullRequest, error) {
	res, err := scanPR(p.db.QueryRow(ctx, insertPRQuery,
		pr.ID, pr.SourceProjectID, pr.TargetProjectID, pr.CreatorID, pr.Title, pr.Description))
	if err != nil {
		p.log.Errorw("failed to insert pull request", "error", err, "id", pr.ID)
		switch {
		case isUniqueViolation(err):
			return nil, entities.ErrPRExists
		case isForeignKeyViolation(err):
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("insert pr: %w", err)
	}
	p.log.Infow("pr created", "pr_id", res.ID)
	return res, nil
}

// GetPR returns a pull request by id.
func (p *Postgres) GetPR(ctx context.Context, prID string) (*entities.PullRequest, error) {
	res, err := scanPR(p.db.QueryRow(ctx, selectPRQuery, prID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrPRNotFound
		}
		p.log.Errorw("failed to select pull request", "error", err, "pr_id", prID)
		return nil, fmt.Errorf("get pr: %w", err)
	}
	return res, nil
}

// ListPRs returns matching pull requests, newest first.
func (p *Postgres) ListPRs(ctx context.Context, filter entities.PullRequestFilter) ([]entities.PullRequest, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	rows, err := p.db.Query(ctx, listPRsQuery, filter.ProjectID, status)
	if err != nil {
		p.log.Errorw("failed to list pull requests", "error", err)
		return nil, fmt.Errorf("list prs: %w", err)
	}
	defer rows.Close()

	out := make([]entities.PullRequest, 0)
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pr)
	}
	if err := rows.Err(); err != nil {
		p.log.Errorw("error iterating pull requests", "error", err)
		return nil, err
	}
	return out, nil
}

// TransitionPR moves an open pull request to closed or rejected.
func (p *Postgres) TransitionPR(ctx context.Context, prID string, to entities.PullRequestStatus) (*entities.PullRequest, error) {
	if to != entities.StatusClosed && to != entities.StatusRejected {
		return nil, fmt.Errorf("%w: cannot transition to %s", entities.ErrInvalidArgument, to)
	}
	res, err := scanPR(p.db.QueryRow(ctx, transitionPRQuery, prID, string(to)))
	if err == nil {
		p.log.Infow("pr transitioned", "pr_id", prID, "status", to)
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		p.log.Errorw("failed to transition pull request", "error", err, "pr_id", prID)
		return nil, fmt.Errorf("transition pr: %w", err)
	}
	return nil, p.notOpen(ctx, prID)
}

// notOpen explains why a conditional update on an open PR matched nothing.
func (p *Postgres) notOpen(ctx context.Context, prID string) error {
	var status string
	if err := p.db.QueryRow(ctx, prStatusQuery, prID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entities.ErrPRNotFound
		}
		return fmt.Errorf("get pr status: %w", err)
	}
	return fmt.Errorf("%w: pull request is %s", entities.ErrInvalidState, status)
}

func scanPR(row pgx.Row) (*entities.PullRequest, error) {
	var pr entities.PullRequest
	var status string
	if err := row.Scan(&pr.ID, &pr.SourceProjectID, &pr.TargetProjectID, &pr.CreatorID, &pr.Title, &pr.Description,
		&status, &pr.CreatedAt, &pr.MergedAt, &pr.MergedBy); err != nil {
		return nil, err
	}
	pr.Status = entities.PullRequestStatus(status)
	return &pr, nil
}
