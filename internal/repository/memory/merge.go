package memory

import (
	"context"
	"fmt"
	"time"

	"asset-fork-merge/internal/entities"
)

// ApplyMerge writes a merge set and marks its pull request merged, all or nothing.
func (m *Memory) ApplyMerge(_ context.Context, set entities.MergeSet) (*entities.PullRequest, error) {
	var out entities.PullRequest
	err := m.write(func(st *state) error {
		pr, ok := st.prs[set.PullRequestID]
		if !ok {
			return entities.ErrPRNotFound
		}
		if pr.Status != entities.StatusOpen {
			return fmt.Errorf("%w: pull request is %s", entities.ErrInvalidState, pr.Status)
		}
		if pr.TargetProjectID != set.TargetProjectID {
			return fmt.Errorf("%w: merge set targets %s, pull request targets %s", entities.ErrInvalidArgument, set.TargetProjectID, pr.TargetProjectID)
		}
		if _, err := st.requireProject(set.TargetProjectID); err != nil {
			return err
		}

		at := m.tick()
		a := applier{st: st, target: set.TargetProjectID, at: at, hook: m.hook}
		for _, ch := range set.ItemTypes {
			if err := a.itemType(ch); err != nil {
				return err
			}
		}
		for _, ch := range set.Items {
			if err := a.item(ch); err != nil {
				return err
			}
		}
		for _, ch := range set.Layers {
			if err := a.layer(ch); err != nil {
				return err
			}
		}
		if set.Metadata != nil {
			if err := a.metadata(*set.Metadata); err != nil {
				return err
			}
		}
		if err := a.step("pull_request", "merged", pr.ID); err != nil {
			return err
		}

		pr = copyPR(pr)
		mergedBy := set.MergedBy
		pr.Status = entities.StatusMerged
		pr.MergedAt = &at
		pr.MergedBy = &mergedBy
		st.prs[pr.ID] = pr
		out = copyPR(pr)
		return nil
	})
	if err != nil {
		m.log.Warnw("merge rolled back", "error", err, "pr_id", set.PullRequestID)
		return nil, err
	}
	return &out, nil
}

type applier struct {
	st     *state
	target string
	at     time.Time
	hook   func(step string) error
}

func (a applier) step(kind string, op entities.MergeOp, id string) error {
	if a.hook == nil {
		return nil
	}
	if err := a.hook(fmt.Sprintf("%s:%s:%s", kind, op, id)); err != nil {
		return fmt.Errorf("%s %s %s: %w", op, kind, id, err)
	}
	return nil
}

func checkExpected(kind, id string, current time.Time, expected *time.Time) error {
	if expected != nil && !current.Equal(*expected) {
		return fmt.Errorf("%w: %s %s", entities.ErrStaleTarget, kind, id)
	}
	return nil
}

func (a applier) itemType(ch entities.ItemTypeChange) error {
	id := ch.ItemType.ID
	if err := a.step("item_type", ch.Op, id); err != nil {
		return err
	}
	current, exists := a.st.itemTypes[id]
	exists = exists && current.ProjectID == a.target
	switch ch.Op {
	case entities.OpDelete:
		a.st.removeItemType(a.target, id)
		return nil
	case entities.OpInsert:
		if _, taken := a.st.itemTypes[id]; taken {
			return fmt.Errorf("%w: item type %s already exists", entities.ErrStaleTarget, id)
		}
	case entities.OpUpdate:
		if !exists {
			return fmt.Errorf("%w: item type %s is gone", entities.ErrStaleTarget, id)
		}
		if err := checkExpected("item type", id, current.UpdatedAt, ch.ExpectedUpdatedAt); err != nil {
			return err
		}
		ch.ItemType.OriginID = current.OriginID
		ch.ItemType.OriginSnapshot = current.OriginSnapshot
	}
	ch.ItemType.ProjectID = a.target
	_, err := a.st.putItemType(ch.ItemType, a.at)
	return err
}

func (a applier) item(ch entities.HierarchyItemChange) error {
	id := ch.Item.ID
	if err := a.step("hierarchy_item", ch.Op, id); err != nil {
		return err
	}
	current, exists := a.st.items[id]
	exists = exists && current.ProjectID == a.target
	switch ch.Op {
	case entities.OpDelete:
		a.st.removeItem(a.target, id)
		return nil
	case entities.OpInsert:
		if _, taken := a.st.items[id]; taken {
			return fmt.Errorf("%w: hierarchy item %s already exists", entities.ErrStaleTarget, id)
		}
	case entities.OpUpdate:
		if !exists {
			return fmt.Errorf("%w: hierarchy item %s is gone", entities.ErrStaleTarget, id)
		}
		if err := checkExpected("hierarchy item", id, current.UpdatedAt, ch.ExpectedUpdatedAt); err != nil {
			return err
		}
		ch.Item.OriginID = current.OriginID
		ch.Item.OriginSnapshot = current.OriginSnapshot
	}
	ch.Item.ProjectID = a.target
	_, err := a.st.putItem(ch.Item, a.at)
	return err
}

func (a applier) layer(ch entities.MapLayerChange) error {
	id := ch.Layer.ID
	if err := a.step("map_layer", ch.Op, id); err != nil {
		return err
	}
	current, exists := a.st.layers[id]
	exists = exists && current.ProjectID == a.target
	switch ch.Op {
	case entities.OpDelete:
		a.st.removeLayer(a.target, id)
		return nil
	case entities.OpInsert:
		if _, taken := a.st.layers[id]; taken {
			return fmt.Errorf("%w: map layer %s already exists", entities.ErrStaleTarget, id)
		}
	case entities.OpUpdate:
		if !exists {
			return fmt.Errorf("%w: map layer %s is gone", entities.ErrStaleTarget, id)
		}
		if err := checkExpected("map layer", id, current.UpdatedAt, ch.ExpectedUpdatedAt); err != nil {
			return err
		}
		ch.Layer.OriginID = current.OriginID
		ch.Layer.OriginSnapshot = current.OriginSnapshot
	}
	ch.Layer.ProjectID = a.target
	_, err := a.st.putLayer(ch.Layer, a.at)
	return err
}

func (a applier) metadata(ch entities.MetadataChange) error {
	if err := a.step("project_metadata", entities.OpUpdate, a.target); err != nil {
		return err
	}
	p := copyProject(a.st.projects[a.target])
	if !p.UpdatedAt.Equal(ch.ExpectedUpdatedAt) {
		return fmt.Errorf("%w: project %s metadata", entities.ErrStaleTarget, a.target)
	}
	p.Title = ch.Metadata.Title
	p.Description = ch.Metadata.Description
	p.UpdatedAt = a.at
	a.st.projects[a.target] = p
	return nil
}
