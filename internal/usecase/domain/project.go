// Package domain contains application services orchestrating domain logic by project.
package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"asset-fork-merge/internal/entities"
)

// CreateProject registers a master project.
func (u *Usecase) CreateProject(ctx context.Context, project entities.Project) (*entities.Project, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	project.Title = strings.TrimSpace(project.Title)
	if project.Title == "" || project.OwnerID == "" {
		return nil, fmt.Errorf("%w: title and owner_id are required", entities.ErrInvalidArgument)
	}
	project.ID = u.newID()
	project.IsMaster = true
	project.ParentProjectID = nil
	project.CloneSnapshot = nil

	res, err := u.repo.CreateProject(ctx, project)
	if err != nil {
		return nil, storeFailure("create project", err)
	}
	u.log.Infow("project created", "project_id", res.ID, "owner_id", res.OwnerID)
	return res, nil
}

// Project returns the project with every entity it owns.
func (u *Usecase) Project(ctx context.Context, projectID string) (*entities.ProjectGraph, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if projectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", entities.ErrInvalidArgument)
	}
	g, err := u.repo.LoadGraph(ctx, projectID)
	if err != nil {
		return nil, storeFailure("load graph", err)
	}
	return g, nil
}

// CloneProject deep-copies a master project into a new fork owned by ownerID.
func (u *Usecase) CloneProject(ctx context.Context, masterID, title, description, ownerID string) (*entities.Project, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	title = strings.TrimSpace(title)
	if masterID == "" || title == "" || ownerID == "" {
		return nil, fmt.Errorf("%w: project_id, title and owner_id are required", entities.ErrInvalidArgument)
	}

	master, err := u.repo.LoadGraph(ctx, masterID)
	if err != nil {
		return nil, storeFailure("load master graph", err)
	}
	if master.Project.IsFork() || !master.Project.IsMaster {
		return nil, fmt.Errorf("%w: project %s is a fork and cannot be cloned: %w",
			entities.ErrProjectNotFound, masterID, entities.ErrInvalidState)
	}

	fork := entities.Project{
		ID:              u.newID(),
		Title:           title,
		Description:     description,
		OwnerID:         ownerID,
		IsMaster:        false,
		ParentProjectID: &master.Project.ID,
		CloneSnapshot: &entities.ProjectSnapshot{
			Source: entities.ProjectMetadata{Title: title, Description: description},
			Target: master.Project.Metadata(),
		},
	}

	graph, err := cloneGraph(master, fork, u.newID)
	if err != nil {
		return nil, err
	}

	res, err := u.repo.CreateClone(ctx, *graph)
	if err != nil {
		u.log.Errorw("clone failed", "error", err, "master_id", masterID)
		return nil, storeFailure("create clone", err)
	}
	u.log.Infow("project cloned",
		"project_id", res.ID,
		"master_id", masterID,
		"item_types", len(graph.ItemTypes),
		"items", len(graph.Items),
		"layers", len(graph.Layers),
	)
	return res, nil
}

// cloneGraph copies every entity of master into fork with fresh ids, lineage pointers and snapshots.
// Intra-project references are rewritten through the id tables built here.
func cloneGraph(master *entities.ProjectGraph, fork entities.Project, newID func() string) (*entities.ProjectGraph, error) {
	refs := masterRefs()

	typeIDs := make(map[string]string, len(master.ItemTypes))
	for _, it := range master.ItemTypes {
		typeIDs[it.ID] = newID()
	}
	itemIDs := make(map[string]string, len(master.Items))
	for _, item := range master.Items {
		itemIDs[item.ID] = newID()
	}

	out := &entities.ProjectGraph{
		Project:   fork,
		ItemTypes: make([]entities.ItemType, 0, len(master.ItemTypes)),
		Items:     make([]entities.HierarchyItem, 0, len(master.Items)),
		Layers:    make([]entities.MapLayer, 0, len(master.Layers)),
	}

	for _, it := range master.ItemTypes {
		snapshot, err := itemTypeContentOf(it, refs.attribute)
		if err != nil {
			return nil, err
		}
		cp := it
		cp.Lineage = cloneLineage(it.Lineage, typeIDs[it.ID], fork.ID, snapshot)
		cp.Attributes = make([]entities.Attribute, 0, len(it.Attributes))
		for _, a := range it.Attributes {
			ac := a
			ac.Lineage = cloneLineage(a.Lineage, newID(), fork.ID, nil)
			ac.ItemTypeID = cp.ID
			cp.Attributes = append(cp.Attributes, ac)
		}
		out.ItemTypes = append(out.ItemTypes, cp)
	}

	for _, item := range master.Items {
		snapshot, err := hierarchyItemContentOf(item, refs.itemType, refs.item)
		if err != nil {
			return nil, err
		}
		cp := item
		cp.Lineage = cloneLineage(item.Lineage, itemIDs[item.ID], fork.ID, snapshot)
		cp.ItemTypeID = translate(item.ItemTypeID, typeIDs)
		cp.ParentID = translate(item.ParentID, itemIDs)
		cp.Properties = copyMap(item.Properties)
		out.Items = append(out.Items, cp)
	}

	ordered, err := orderParentsFirst(out.Items)
	if err != nil {
		return nil, err
	}
	out.Items = ordered

	for _, layer := range master.Layers {
		snapshot, err := mapLayerContentOf(layer)
		if err != nil {
			return nil, err
		}
		cp := layer
		cp.Lineage = cloneLineage(layer.Lineage, newID(), fork.ID, snapshot)
		cp.Style = copyMap(layer.Style)
		cp.Geometry = copyMap(layer.Geometry)
		out.Layers = append(out.Layers, cp)
	}

	return out, nil
}

func cloneLineage(src entities.Lineage, id, projectID string, snapshot []byte) entities.Lineage {
	origin := src.ID
	return entities.Lineage{
		ID:             id,
		OriginID:       &origin,
		ProjectID:      projectID,
		OriginSnapshot: json.RawMessage(snapshot),
		UpdatedAt:      src.UpdatedAt,
	}
}

// translate maps a reference through ids; references to unknown rows are dropped.
func translate(id *string, ids map[string]string) *string {
	if id == nil {
		return nil
	}
	mapped, ok := ids[*id]
	if !ok {
		return nil
	}
	return &mapped
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
