// Package domain contains application services orchestrating domain logic by diff.
package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"asset-fork-merge/internal/entities"
)

// record is one entity reduced to its master-space content.
type record struct {
	id        string
	originID  *string
	content   []byte
	entity    any
	updatedAt time.Time
}

// sourceRecord is a fork entity with the baselines each side is compared against.
type sourceRecord struct {
	record
	forkBaseline   []byte
	targetBaseline []byte
	// proposed is what the merge writes when the fork side wins.
	proposed any
}

type changeKind int

const (
	kindAdded changeKind = iota
	kindModified
	kindDeleted
	kindConflict
)

type change struct {
	key          entities.EntityKey
	kind         changeKind
	conflictType entities.ConflictType
	source       sourceRecord
	target       *record
}

// diffResult keeps the typed graphs next to the computed changes so a merge can be planned from them.
type diffResult struct {
	pr      entities.PullRequest
	source  *entities.ProjectGraph
	target  *entities.ProjectGraph
	changes []change
}

// Diff computes the PR's change set and conflicts from the live projects.
func (u *Usecase) Diff(ctx context.Context, prID string) (*entities.Diff, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if prID == "" {
		return nil, fmt.Errorf("%w: pull_request_id is required", entities.ErrInvalidArgument)
	}
	pr, err := u.repo.GetPR(ctx, prID)
	if err != nil {
		return nil, storeFailure("get pr", err)
	}
	res, err := u.loadDiff(ctx, *pr)
	if err != nil {
		return nil, err
	}
	out := res.export()
	u.log.Debugw("diff computed", "pr_id", prID, "entries", len(out.Entries), "conflicts", len(out.Conflicts))
	return out, nil
}

func (u *Usecase) loadDiff(ctx context.Context, pr entities.PullRequest) (*diffResult, error) {
	source, err := u.repo.LoadGraph(ctx, pr.SourceProjectID)
	if err != nil {
		return nil, storeFailure("load source graph", err)
	}
	target, err := u.repo.LoadGraph(ctx, pr.TargetProjectID)
	if err != nil {
		return nil, storeFailure("load target graph", err)
	}
	return computeDiff(pr, source, target)
}

func computeDiff(pr entities.PullRequest, source, target *entities.ProjectGraph) (*diffResult, error) {
	srcRefs := forkRefs(source)
	tgtRefs := masterRefs()

	res := &diffResult{pr: pr, source: source, target: target}

	metaSrc, metaTgt, err := metadataRecords(source.Project, target.Project)
	if err != nil {
		return nil, err
	}
	res.changes = append(res.changes, diffCategory(entities.CategoryProjectMetadata, []sourceRecord{metaSrc}, metaTgt)...)

	itemTargets, err := buildTargets(target.Items, itemLineage, func(it entities.HierarchyItem) ([]byte, error) {
		return hierarchyItemContentOf(it, tgtRefs.itemType, tgtRefs.item)
	})
	if err != nil {
		return nil, err
	}
	itemSources, err := buildSources(source.Items, itemLineage, func(it entities.HierarchyItem) ([]byte, error) {
		return hierarchyItemContentOf(it, srcRefs.itemType, srcRefs.item)
	}, recanonical[hierarchyItemContent], itemTargets)
	if err != nil {
		return nil, err
	}
	res.changes = append(res.changes, diffCategory(entities.CategoryHierarchyItem, itemSources, itemTargets)...)

	typeTargets, err := buildTargets(target.ItemTypes, itemTypeLineage, func(it entities.ItemType) ([]byte, error) {
		return itemTypeContentOf(it, tgtRefs.attribute)
	})
	if err != nil {
		return nil, err
	}
	typeSources, err := buildSources(source.ItemTypes, itemTypeLineage, func(it entities.ItemType) ([]byte, error) {
		return itemTypeContentOf(it, srcRefs.attribute)
	}, recanonical[itemTypeContent], typeTargets)
	if err != nil {
		return nil, err
	}
	res.changes = append(res.changes, diffCategory(entities.CategoryItemType, typeSources, typeTargets)...)

	layerTargets, err := buildTargets(target.Layers, layerLineage, mapLayerContentOf)
	if err != nil {
		return nil, err
	}
	layerSources, err := buildSources(source.Layers, layerLineage, mapLayerContentOf, recanonical[mapLayerContent], layerTargets)
	if err != nil {
		return nil, err
	}
	res.changes = append(res.changes, diffCategory(entities.CategoryMapLayer, layerSources, layerTargets)...)

	return res, nil
}

func itemLineage(it entities.HierarchyItem) entities.Lineage { return it.Lineage }
func itemTypeLineage(it entities.ItemType) entities.Lineage  { return it.Lineage }
func layerLineage(l entities.MapLayer) entities.Lineage      { return l.Lineage }

func buildTargets[T any](list []T, lineage func(T) entities.Lineage, contentOf func(T) ([]byte, error)) (map[string]record, error) {
	out := make(map[string]record, len(list))
	for _, e := range list {
		lin := lineage(e)
		content, err := contentOf(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", entities.ErrInvalidArgument, lin.ID, err)
		}
		out[lin.ID] = record{id: lin.ID, originID: lin.OriginID, content: content, entity: e, updatedAt: lin.UpdatedAt}
	}
	return out, nil
}

func buildSources[T any](
	list []T,
	lineage func(T) entities.Lineage,
	contentOf func(T) ([]byte, error),
	normalize func(json.RawMessage) ([]byte, error),
	targets map[string]record,
) ([]sourceRecord, error) {
	out := make([]sourceRecord, 0, len(list))
	for _, e := range list {
		lin := lineage(e)
		content, err := contentOf(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", entities.ErrInvalidArgument, lin.ID, err)
		}
		src := sourceRecord{
			record:   record{id: lin.ID, originID: lin.OriginID, content: content, entity: e, updatedAt: lin.UpdatedAt},
			proposed: e,
		}
		if lin.OriginID != nil {
			// Rows cloned without a snapshot fall back to the master's live content.
			var baseline []byte
			if len(lin.OriginSnapshot) > 0 {
				baseline, err = normalize(lin.OriginSnapshot)
				if err != nil {
					return nil, fmt.Errorf("%w: %s: %w", entities.ErrInvalidArgument, lin.ID, err)
				}
			} else if tgt, ok := targets[*lin.OriginID]; ok {
				baseline = tgt.content
			} else {
				baseline = content
			}
			src.forkBaseline = baseline
			src.targetBaseline = baseline
		}
		out = append(out, src)
	}
	return out, nil
}

func metadataRecords(source, target entities.Project) (sourceRecord, map[string]record, error) {
	srcMeta := source.Metadata()
	tgtMeta := target.Metadata()

	srcContent, err := canonical(srcMeta)
	if err != nil {
		return sourceRecord{}, nil, err
	}
	tgtContent, err := canonical(tgtMeta)
	if err != nil {
		return sourceRecord{}, nil, err
	}

	forkBase, targetBase := srcMeta, tgtMeta
	if source.CloneSnapshot != nil {
		forkBase, targetBase = source.CloneSnapshot.Source, source.CloneSnapshot.Target
	}
	forkBaseline, err := canonical(forkBase)
	if err != nil {
		return sourceRecord{}, nil, err
	}
	targetBaseline, err := canonical(targetBase)
	if err != nil {
		return sourceRecord{}, nil, err
	}

	originID := target.ID
	src := sourceRecord{
		record:         record{id: source.ID, originID: &originID, content: srcContent, entity: srcMeta, updatedAt: source.UpdatedAt},
		forkBaseline:   forkBaseline,
		targetBaseline: targetBaseline,
		proposed:       overlayMetadata(tgtMeta, srcMeta, forkBase),
	}
	targets := map[string]record{
		target.ID: {id: target.ID, content: tgtContent, entity: tgtMeta, updatedAt: target.UpdatedAt},
	}
	return src, targets, nil
}

// overlayMetadata applies the fields the fork changed since cloning onto the target's metadata.
func overlayMetadata(target, fork, forkBaseline entities.ProjectMetadata) entities.ProjectMetadata {
	out := target
	if fork.Title != forkBaseline.Title {
		out.Title = fork.Title
	}
	if fork.Description != forkBaseline.Description {
		out.Description = fork.Description
	}
	return out
}

func diffCategory(category entities.EntityCategory, sources []sourceRecord, targets map[string]record) []change {
	changes := make([]change, 0)
	for _, src := range sources {
		if src.originID == nil {
			changes = append(changes, change{
				key:    entities.EntityKey{Category: category, EntityID: src.id},
				kind:   kindAdded,
				source: src,
			})
			continue
		}

		key := entities.EntityKey{Category: category, EntityID: *src.originID}
		forkChanged := !bytes.Equal(src.content, src.forkBaseline)

		tgt, ok := targets[*src.originID]
		if !ok {
			if forkChanged {
				changes = append(changes, change{key: key, kind: kindConflict, conflictType: entities.ConflictDeletedVsModified, source: src})
			} else {
				changes = append(changes, change{key: key, kind: kindDeleted, source: src})
			}
			continue
		}

		masterChanged := !bytes.Equal(tgt.content, src.targetBaseline)
		switch {
		case forkChanged && masterChanged:
			if bytes.Equal(src.content, tgt.content) {
				// Both sides converged on the same content.
				continue
			}
			t := tgt
			changes = append(changes, change{key: key, kind: kindConflict, conflictType: entities.ConflictConcurrentModification, source: src, target: &t})
		case forkChanged:
			t := tgt
			changes = append(changes, change{key: key, kind: kindModified, source: src, target: &t})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].key.EntityID < changes[j].key.EntityID
	})
	return changes
}

func (r *diffResult) export() *entities.Diff {
	out := &entities.Diff{
		PullRequestID:   r.pr.ID,
		SourceProjectID: r.pr.SourceProjectID,
		TargetProjectID: r.pr.TargetProjectID,
		Entries:         make([]entities.DiffEntry, 0),
		Conflicts:       r.conflicts(),
	}
	for _, ch := range r.changes {
		switch ch.kind {
		case kindAdded:
			out.Entries = append(out.Entries, entities.DiffEntry{
				Category: ch.key.Category, EntityID: ch.key.EntityID, ChangeType: entities.ChangeAdded,
				NewData: ch.source.proposed,
			})
		case kindModified:
			out.Entries = append(out.Entries, entities.DiffEntry{
				Category: ch.key.Category, EntityID: ch.key.EntityID, ChangeType: entities.ChangeModified,
				OldData: ch.target.entity, NewData: ch.source.proposed,
			})
		case kindDeleted:
			out.Entries = append(out.Entries, entities.DiffEntry{
				Category: ch.key.Category, EntityID: ch.key.EntityID, ChangeType: entities.ChangeDeleted,
				OldData: ch.source.entity,
			})
		}
	}
	return out
}

func (r *diffResult) conflicts() []entities.Conflict {
	out := make([]entities.Conflict, 0)
	for _, ch := range r.changes {
		if ch.kind != kindConflict {
			continue
		}
		c := entities.Conflict{
			Category:     ch.key.Category,
			EntityID:     ch.key.EntityID,
			ConflictType: ch.conflictType,
			SourceData:   ch.source.entity,
		}
		if ch.target != nil {
			c.TargetData = ch.target.entity
		}
		out = append(out, c)
	}
	return out
}
