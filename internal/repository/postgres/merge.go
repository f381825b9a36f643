package postgres

import (
	"context"
	"errors"
	"fmt"

	"asset-fork-merge/internal/entities"

	"github.com/jackc/pgx/v5"
)

const updateMergedMetadataQuery = `UPDATE projects SET title=$2, description=$3, updated_at=NOW() WHERE id=$1 AND updated_at=$4`

// ApplyMerge writes a merge set and marks the pull request merged in one transaction.
// The pull request and target project rows stay locked until commit.
func (p *Postgres) ApplyMerge(ctx context.Context, set entities.MergeSet) (*entities.PullRequest, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pr, err := scanPR(tx.QueryRow(ctx, selectPRForUpdateQuery, set.PullRequestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrPRNotFound
		}
		return nil, fmt.Errorf("lock pr: %w", err)
	}
	if pr.Status != entities.StatusOpen {
		return nil, fmt.Errorf("%w: pull request is %s", entities.ErrInvalidState, pr.Status)
	}
	if pr.TargetProjectID != set.TargetProjectID {
		return nil, fmt.Errorf("%w: merge set targets %s, pull request targets %s", entities.ErrInvalidArgument, set.TargetProjectID, pr.TargetProjectID)
	}
	if _, err := scanProject(tx.QueryRow(ctx, selectProjectForUpdateQuery, set.TargetProjectID)); err != nil {
		return nil, err
	}

	target := set.TargetProjectID
	for _, ch := range set.ItemTypes {
		if err := applyItemType(ctx, tx, target, ch); err != nil {
			p.log.Errorw("merge item type failed", "error", err, "pr_id", set.PullRequestID, "item_type_id", ch.ItemType.ID)
			return nil, err
		}
	}
	for _, ch := range set.Items {
		if err := applyItem(ctx, tx, target, ch); err != nil {
			p.log.Errorw("merge hierarchy item failed", "error", err, "pr_id", set.PullRequestID, "item_id", ch.Item.ID)
			return nil, err
		}
	}
	for _, ch := range set.Layers {
		if err := applyLayer(ctx, tx, target, ch); err != nil {
			p.log.Errorw("merge map layer failed", "error", err, "pr_id", set.PullRequestID, "layer_id", ch.Layer.ID)
			return nil, err
		}
	}
	if m := set.Metadata; m != nil {
		tag, err := tx.Exec(ctx, updateMergedMetadataQuery, target, m.Metadata.Title, m.Metadata.Description, m.ExpectedUpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("merge metadata: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("%w: project %s metadata", entities.ErrStaleTarget, target)
		}
	}

	merged, err := scanPR(tx.QueryRow(ctx, updatePRMergedQuery, set.PullRequestID, set.MergedBy))
	if err != nil {
		p.log.Errorw("failed to mark pr merged", "error", err, "pr_id", set.PullRequestID)
		return nil, fmt.Errorf("merge pr: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		p.log.Errorw("merge commit failed", "error", err, "pr_id", set.PullRequestID)
		return nil, fmt.Errorf("commit merge: %w", err)
	}
	p.log.Infow("merge applied",
		"pr_id", set.PullRequestID,
		"item_types", len(set.ItemTypes),
		"items", len(set.Items),
		"layers", len(set.Layers),
	)
	return merged, nil
}

func applyItemType(ctx context.Context, tx pgx.Tx, target string, ch entities.ItemTypeChange) error {
	it := ch.ItemType
	it.ProjectID = target
	switch ch.Op {
	case entities.OpDelete:
		_, err := tx.Exec(ctx, deleteItemTypeQuery, it.ID, target)
		return err
	case entities.OpInsert:
		if _, err := tx.Exec(ctx, insertItemTypeQuery, it.ID, target, nil, nil, it.Title, it.Description, it.Color); err != nil {
			return insertConflict("item type", it.ID, err)
		}
	case entities.OpUpdate:
		tag, err := tx.Exec(ctx, updateItemTypeQuery, it.ID, target, it.Title, it.Description, it.Color, expected(ch.ExpectedUpdatedAt))
		if err != nil {
			return fmt.Errorf("update item type: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: item type %s", entities.ErrStaleTarget, it.ID)
		}
	default:
		return fmt.Errorf("%w: unknown merge op %q", entities.ErrInvalidArgument, ch.Op)
	}
	return writeAttributes(ctx, tx, &it)
}

func applyItem(ctx context.Context, tx pgx.Tx, target string, ch entities.HierarchyItemChange) error {
	item := ch.Item
	switch ch.Op {
	case entities.OpDelete:
		_, err := tx.Exec(ctx, deleteItemQuery, item.ID, target)
		return err
	case entities.OpInsert:
		if _, err := tx.Exec(ctx, insertItemQuery, item.ID, target, nil, nil, item.ItemTypeID, item.ParentID,
			item.Title, item.Latitude, item.Longitude, jsonObject(item.Properties)); err != nil {
			return insertConflict("hierarchy item", item.ID, err)
		}
	case entities.OpUpdate:
		tag, err := tx.Exec(ctx, updateItemQuery, item.ID, target, item.ItemTypeID, item.ParentID,
			item.Title, item.Latitude, item.Longitude, jsonObject(item.Properties), expected(ch.ExpectedUpdatedAt))
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: hierarchy item %s references a removed row", entities.ErrStaleTarget, item.ID)
			}
			return fmt.Errorf("update hierarchy item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: hierarchy item %s", entities.ErrStaleTarget, item.ID)
		}
	default:
		return fmt.Errorf("%w: unknown merge op %q", entities.ErrInvalidArgument, ch.Op)
	}
	return nil
}

func applyLayer(ctx context.Context, tx pgx.Tx, target string, ch entities.MapLayerChange) error {
	layer := ch.Layer
	switch ch.Op {
	case entities.OpDelete:
		_, err := tx.Exec(ctx, deleteLayerQuery, layer.ID, target)
		return err
	case entities.OpInsert:
		if _, err := tx.Exec(ctx, insertLayerQuery, layer.ID, target, nil, nil, layer.Title, layer.LayerType,
			jsonObject(layer.Style), jsonObject(layer.Geometry), layer.Visible, layer.Position); err != nil {
			return insertConflict("map layer", layer.ID, err)
		}
	case entities.OpUpdate:
		tag, err := tx.Exec(ctx, updateLayerQuery, layer.ID, target, layer.Title, layer.LayerType,
			jsonObject(layer.Style), jsonObject(layer.Geometry), layer.Visible, layer.Position, expected(ch.ExpectedUpdatedAt))
		if err != nil {
			return fmt.Errorf("update map layer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: map layer %s", entities.ErrStaleTarget, layer.ID)
		}
	default:
		return fmt.Errorf("%w: unknown merge op %q", entities.ErrInvalidArgument, ch.Op)
	}
	return nil
}

// insertConflict reports rows that appeared or references that vanished since the diff as stale.
func insertConflict(kind, id string, err error) error {
	if isUniqueViolation(err) || isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %s %s: %w", entities.ErrStaleTarget, kind, id, err)
	}
	return fmt.Errorf("insert %s: %w", kind, err)
}
