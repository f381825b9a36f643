// Package domain contains application services orchestrating domain logic by merge.
package domain

import (
	"context"
	"fmt"
	"sort"

	"asset-fork-merge/internal/entities"
)

type applyKind int

const (
	applySkip applyKind = iota
	applyInsert
	applyRecreate
	applyUpdate
	applyDelete
)

// MergePullRequest applies the PR's freshly recomputed changes to its target project.
// While conflicts lack a resolution it returns *entities.ConflictsPendingError and the PR stays open.
func (u *Usecase) MergePullRequest(ctx context.Context, prID, actorID string, resolutions []entities.Resolution) (*entities.MergeResult, error) {
	ctx, cancel := withTimeout(ctx, u.mergeTimeout)
	defer cancel()

	decided, err := indexResolutions(resolutions)
	if err != nil {
		return nil, err
	}

	pr, err := u.openPR(ctx, prID, actorID)
	if err != nil {
		return nil, err
	}
	if err := u.requireTargetOwner(ctx, pr, actorID, "merge"); err != nil {
		return nil, err
	}

	unlock, err := u.locker.Lock(ctx, mergeLockKey(pr.TargetProjectID))
	if err != nil {
		return nil, fmt.Errorf("%w: acquire merge lock: %w", entities.ErrTransactionFailure, err)
	}
	defer unlock()

	res, err := u.loadDiff(ctx, *pr)
	if err != nil {
		return nil, err
	}

	conflicts := res.conflicts()
	pending := 0
	open := make(map[entities.EntityKey]struct{}, len(conflicts))
	for _, c := range conflicts {
		open[c.Key()] = struct{}{}
		if _, ok := decided[c.Key()]; !ok {
			pending++
		}
	}
	for key := range decided {
		if _, ok := open[key]; !ok {
			u.log.Infow("resolution matches no conflict", "pr_id", prID, "category", key.Category, "entity_id", key.EntityID)
		}
	}
	if pending > 0 {
		u.log.Infow("merge blocked by conflicts", "pr_id", prID, "conflicts", len(conflicts), "unresolved", pending)
		return nil, &entities.ConflictsPendingError{Conflicts: conflicts}
	}

	set, err := planMerge(res, decided, actorID, u.newID)
	if err != nil {
		return nil, err
	}

	merged, err := u.repo.ApplyMerge(ctx, *set)
	if err != nil {
		u.log.Errorw("merge apply failed", "error", err, "pr_id", prID, "target", pr.TargetProjectID)
		return nil, storeFailure("apply merge", err)
	}

	applied := set.Counts()
	u.log.Infow("pr merged",
		"pr_id", prID,
		"target", pr.TargetProjectID,
		"actor", actorID,
		"inserted", applied.Inserted,
		"updated", applied.Updated,
		"deleted", applied.Deleted,
		"skipped", applied.Skipped,
	)
	u.archiveReceipt(merged, res, resolutions, applied)

	return &entities.MergeResult{PullRequest: *merged, Applied: applied}, nil
}

func mergeLockKey(targetProjectID string) string {
	return "merge:" + targetProjectID
}

// indexResolutions keys resolutions by category and entity id; positions carry no meaning.
func indexResolutions(list []entities.Resolution) (map[entities.EntityKey]entities.ResolutionAction, error) {
	out := make(map[entities.EntityKey]entities.ResolutionAction, len(list))
	for _, r := range list {
		if !r.Category.Valid() || r.EntityID == "" {
			return nil, fmt.Errorf("%w: resolution needs a known entity_category and an entity_id", entities.ErrInvalidArgument)
		}
		if !r.Action.Valid() {
			return nil, fmt.Errorf("%w: unknown resolution action %q", entities.ErrInvalidArgument, r.Action)
		}
		if prev, ok := out[r.Key()]; ok && prev != r.Action {
			return nil, fmt.Errorf("%w: contradicting resolutions for %s %s", entities.ErrInvalidArgument, r.Category, r.EntityID)
		}
		out[r.Key()] = r.Action
	}
	return out, nil
}

func decide(ch change, decided map[entities.EntityKey]entities.ResolutionAction) applyKind {
	switch ch.kind {
	case kindAdded:
		return applyInsert
	case kindModified:
		return applyUpdate
	case kindDeleted:
		return applyDelete
	case kindConflict:
		if decided[ch.key] != entities.KeepSource {
			return applySkip
		}
		if ch.conflictType == entities.ConflictDeletedVsModified {
			return applyRecreate
		}
		return applyUpdate
	}
	return applySkip
}

// planner turns a diff into target-space row operations.
type planner struct {
	res     *diffResult
	newID   func() string
	target  string
	kinds   map[entities.EntityKey]applyKind
	typeIDs map[string]string
	itemIDs map[string]string
	set     *entities.MergeSet
}

func planMerge(res *diffResult, decided map[entities.EntityKey]entities.ResolutionAction, actorID string, newID func() string) (*entities.MergeSet, error) {
	p := &planner{
		res:    res,
		newID:  newID,
		target: res.target.Project.ID,
		kinds:  make(map[entities.EntityKey]applyKind, len(res.changes)),
		set: &entities.MergeSet{
			PullRequestID:   res.pr.ID,
			TargetProjectID: res.target.Project.ID,
			MergedBy:        actorID,
		},
	}
	for _, ch := range res.changes {
		kind := decide(ch, decided)
		p.kinds[ch.key] = kind
		if kind == applySkip {
			p.set.Skipped++
		}
	}

	p.buildIDTables()
	p.planItemTypes()
	if err := p.planItems(); err != nil {
		return nil, err
	}
	p.planLayers()
	p.planMetadata()
	return p.set, nil
}

// buildIDTables maps fork ids to the ids the rows will have in the target once the merge commits.
// Rows that will not exist there are left out, so references to them resolve to nil.
func (p *planner) buildIDTables() {
	targetTypes := make(map[string]struct{}, len(p.res.target.ItemTypes))
	for _, it := range p.res.target.ItemTypes {
		targetTypes[it.ID] = struct{}{}
	}
	targetItems := make(map[string]struct{}, len(p.res.target.Items))
	for _, item := range p.res.target.Items {
		targetItems[item.ID] = struct{}{}
	}

	p.typeIDs = make(map[string]string, len(p.res.source.ItemTypes))
	for _, it := range p.res.source.ItemTypes {
		if id, ok := p.targetID(entities.CategoryItemType, it.Lineage, targetTypes); ok {
			p.typeIDs[it.ID] = id
		}
	}
	p.itemIDs = make(map[string]string, len(p.res.source.Items))
	for _, item := range p.res.source.Items {
		if id, ok := p.targetID(entities.CategoryHierarchyItem, item.Lineage, targetItems); ok {
			p.itemIDs[item.ID] = id
		}
	}
}

func (p *planner) targetID(category entities.EntityCategory, lin entities.Lineage, existing map[string]struct{}) (string, bool) {
	if lin.OriginID == nil {
		return p.newID(), true
	}
	origin := *lin.OriginID
	if _, ok := existing[origin]; ok {
		return origin, true
	}
	if p.kinds[entities.EntityKey{Category: category, EntityID: origin}] == applyRecreate {
		return origin, true
	}
	return "", false
}

func (p *planner) changesOf(category entities.EntityCategory) []change {
	out := make([]change, 0)
	for _, ch := range p.res.changes {
		if ch.key.Category == category && p.kinds[ch.key] != applySkip {
			out = append(out, ch)
		}
	}
	return out
}

func opOf(kind applyKind) entities.MergeOp {
	switch kind {
	case applyInsert, applyRecreate:
		return entities.OpInsert
	case applyDelete:
		return entities.OpDelete
	default:
		return entities.OpUpdate
	}
}

func (p *planner) rowID(ch change) string {
	if p.kinds[ch.key] == applyInsert {
		return p.typeOrItemID(ch)
	}
	return ch.key.EntityID
}

func (p *planner) typeOrItemID(ch change) string {
	switch ch.key.Category {
	case entities.CategoryItemType:
		return p.typeIDs[ch.source.id]
	case entities.CategoryHierarchyItem:
		return p.itemIDs[ch.source.id]
	default:
		return p.newID()
	}
}

func (p *planner) planItemTypes() {
	for _, ch := range p.changesOf(entities.CategoryItemType) {
		kind := p.kinds[ch.key]
		id := p.rowID(ch)
		c := entities.ItemTypeChange{Op: opOf(kind)}
		if kind == applyDelete {
			c.ItemType = entities.ItemType{Lineage: entities.Lineage{ID: id, ProjectID: p.target}}
			p.set.ItemTypes = append(p.set.ItemTypes, c)
			continue
		}

		src := ch.source.entity.(entities.ItemType)
		out := entities.ItemType{
			Lineage:     entities.Lineage{ID: id, ProjectID: p.target},
			Title:       src.Title,
			Description: src.Description,
			Color:       src.Color,
			Attributes:  make([]entities.Attribute, 0, len(src.Attributes)),
		}
		for _, a := range src.Attributes {
			attrID := p.newID()
			if a.OriginID != nil {
				attrID = *a.OriginID
			}
			out.Attributes = append(out.Attributes, entities.Attribute{
				Lineage:    entities.Lineage{ID: attrID, ProjectID: p.target},
				ItemTypeID: id,
				Name:       a.Name,
				DataType:   a.DataType,
				Required:   a.Required,
				Position:   a.Position,
			})
		}
		c.ItemType = out
		if kind == applyUpdate && ch.target != nil {
			at := ch.target.updatedAt
			c.ExpectedUpdatedAt = &at
		}
		p.set.ItemTypes = append(p.set.ItemTypes, c)
	}
}

func (p *planner) planItems() error {
	changes := make([]entities.HierarchyItemChange, 0)
	for _, ch := range p.changesOf(entities.CategoryHierarchyItem) {
		kind := p.kinds[ch.key]
		id := p.rowID(ch)
		c := entities.HierarchyItemChange{Op: opOf(kind)}
		if kind == applyDelete {
			c.Item = entities.HierarchyItem{Lineage: entities.Lineage{ID: id, ProjectID: p.target}}
			changes = append(changes, c)
			continue
		}

		src := ch.source.entity.(entities.HierarchyItem)
		c.Item = entities.HierarchyItem{
			Lineage:    entities.Lineage{ID: id, ProjectID: p.target},
			ItemTypeID: translate(src.ItemTypeID, p.typeIDs),
			ParentID:   translate(src.ParentID, p.itemIDs),
			Title:      src.Title,
			Latitude:   src.Latitude,
			Longitude:  src.Longitude,
			Properties: copyMap(src.Properties),
		}
		if kind == applyUpdate && ch.target != nil {
			at := ch.target.updatedAt
			c.ExpectedUpdatedAt = &at
		}
		changes = append(changes, c)
	}

	// The tree the target ends up with must stay acyclic; writes go parents first.
	final := make(map[string]*string, len(p.res.target.Items)+len(changes))
	for _, item := range p.res.target.Items {
		final[item.ID] = item.ParentID
	}
	for _, ch := range changes {
		if ch.Op == entities.OpDelete {
			delete(final, ch.Item.ID)
			continue
		}
		final[ch.Item.ID] = ch.Item.ParentID
	}
	depths, err := depthsWithin(final)
	if err != nil {
		return err
	}
	sort.SliceStable(changes, func(i, j int) bool {
		di, dj := changes[i].Op == entities.OpDelete, changes[j].Op == entities.OpDelete
		if di != dj {
			return di
		}
		if depths[changes[i].Item.ID] != depths[changes[j].Item.ID] {
			return depths[changes[i].Item.ID] < depths[changes[j].Item.ID]
		}
		return changes[i].Item.ID < changes[j].Item.ID
	})
	p.set.Items = changes
	return nil
}

func (p *planner) planLayers() {
	for _, ch := range p.changesOf(entities.CategoryMapLayer) {
		kind := p.kinds[ch.key]
		id := p.rowID(ch)
		c := entities.MapLayerChange{Op: opOf(kind)}
		if kind == applyDelete {
			c.Layer = entities.MapLayer{Lineage: entities.Lineage{ID: id, ProjectID: p.target}}
			p.set.Layers = append(p.set.Layers, c)
			continue
		}

		src := ch.source.entity.(entities.MapLayer)
		c.Layer = entities.MapLayer{
			Lineage:   entities.Lineage{ID: id, ProjectID: p.target},
			Title:     src.Title,
			LayerType: src.LayerType,
			Style:     copyMap(src.Style),
			Geometry:  copyMap(src.Geometry),
			Visible:   src.Visible,
			Position:  src.Position,
		}
		if kind == applyUpdate && ch.target != nil {
			at := ch.target.updatedAt
			c.ExpectedUpdatedAt = &at
		}
		p.set.Layers = append(p.set.Layers, c)
	}
}

func (p *planner) planMetadata() {
	for _, ch := range p.changesOf(entities.CategoryProjectMetadata) {
		if p.kinds[ch.key] != applyUpdate || ch.target == nil {
			continue
		}
		p.set.Metadata = &entities.MetadataChange{
			Metadata:          ch.source.proposed.(entities.ProjectMetadata),
			ExpectedUpdatedAt: ch.target.updatedAt,
		}
	}
}

// archiveReceipt records a committed merge; failures are logged because the merge itself already succeeded.
func (u *Usecase) archiveReceipt(pr *entities.PullRequest, res *diffResult, resolutions []entities.Resolution, applied entities.MergeCounts) {
	ctx, cancel := withTimeout(u.ctx, u.timeout)
	defer cancel()

	receipt := entities.MergeReceipt{
		PullRequestID:   pr.ID,
		SourceProjectID: pr.SourceProjectID,
		TargetProjectID: pr.TargetProjectID,
		MergedAt:        u.now(),
		Entries:         res.export().Entries,
		Resolutions:     resolutions,
		Applied:         applied,
	}
	if pr.MergedBy != nil {
		receipt.MergedBy = *pr.MergedBy
	}
	if pr.MergedAt != nil {
		receipt.MergedAt = *pr.MergedAt
	}
	if err := u.archiver.Archive(ctx, receipt); err != nil {
		u.log.Warnw("merge receipt not archived", "error", err, "pr_id", pr.ID)
	}
}
