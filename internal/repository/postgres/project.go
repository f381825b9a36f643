package postgres

import (
	"context"
	"errors"
	"fmt"

	"asset-fork-merge/internal/entities"

	"github.com/jackc/pgx/v5"
)

const (
	insertProjectQuery = `INSERT INTO projects(id, title, description, owner_id, is_master, parent_project_id, clone_snapshot)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at, updated_at`
	selectProjectQuery = `SELECT id, title, description, owner_id, is_master, parent_project_id, clone_snapshot, created_at, updated_at
		FROM projects WHERE id=$1`
	selectProjectForUpdateQuery = selectProjectQuery + ` FOR UPDATE`
	updateProjectMetadataQuery  = `UPDATE projects SET title=$2, description=$3, updated_at=NOW() WHERE id=$1 RETURNING updated_at`
)

// CreateProject stores a new project.
func (p *Postgres) CreateProject(ctx context.Context, project entities.Project) (*entities.Project, error) {
	if err := insertProject(ctx, p.db, &project); err != nil {
		p.log.Errorw("failed to insert project", "error", err, "project_id", project.ID)
		return nil, err
	}
	p.log.Infow("project stored", "project_id", project.ID)
	return &project, nil
}

func insertProject(ctx context.Context, q querier, project *entities.Project) error {
	if err := q.QueryRow(ctx, insertProjectQuery,
		project.ID, project.Title, project.Description, project.OwnerID, project.IsMaster, project.ParentProjectID, project.CloneSnapshot,
	).Scan(&project.CreatedAt, &project.UpdatedAt); err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: project %s already exists", entities.ErrInvalidArgument, project.ID)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: parent project", entities.ErrProjectNotFound)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject returns a project without its entities.
func (p *Postgres) GetProject(ctx context.Context, projectID string) (*entities.Project, error) {
	project, err := scanProject(p.db.QueryRow(ctx, selectProjectQuery, projectID))
	if err != nil {
		if !errors.Is(err, entities.ErrProjectNotFound) {
			p.log.Errorw("failed to select project", "error", err, "project_id", projectID)
		}
		return nil, err
	}
	return project, nil
}

func scanProject(row pgx.Row) (*entities.Project, error) {
	var project entities.Project
	if err := row.Scan(&project.ID, &project.Title, &project.Description, &project.OwnerID, &project.IsMaster,
		&project.ParentProjectID, &project.CloneSnapshot, &project.CreatedAt, &project.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

// UpdateProjectMetadata rewrites title and description.
func (p *Postgres) UpdateProjectMetadata(ctx context.Context, projectID string, meta entities.ProjectMetadata) (*entities.Project, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	project, err := scanProject(tx.QueryRow(ctx, selectProjectForUpdateQuery, projectID))
	if err != nil {
		return nil, err
	}
	if err := tx.QueryRow(ctx, updateProjectMetadataQuery, projectID, meta.Title, meta.Description).Scan(&project.UpdatedAt); err != nil {
		p.log.Errorw("failed to update project metadata", "error", err, "project_id", projectID)
		return nil, fmt.Errorf("update project: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	project.Title = meta.Title
	project.Description = meta.Description
	return project, nil
}

// LoadGraph reads a project and all of its entities from one snapshot.
func (p *Postgres) LoadGraph(ctx context.Context, projectID string) (*entities.ProjectGraph, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	project, err := scanProject(tx.QueryRow(ctx, selectProjectQuery, projectID))
	if err != nil {
		return nil, err
	}
	graph := &entities.ProjectGraph{Project: *project}
	if graph.ItemTypes, err = selectItemTypes(ctx, tx, projectID); err != nil {
		p.log.Errorw("failed to load item types", "error", err, "project_id", projectID)
		return nil, err
	}
	if graph.Items, err = selectItems(ctx, tx, projectID); err != nil {
		p.log.Errorw("failed to load hierarchy items", "error", err, "project_id", projectID)
		return nil, err
	}
	if graph.Layers, err = selectLayers(ctx, tx, projectID); err != nil {
		p.log.Errorw("failed to load map layers", "error", err, "project_id", projectID)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return graph, nil
}

// CreateClone stores a cloned graph in one transaction; items must come parents first.
func (p *Postgres) CreateClone(ctx context.Context, graph entities.ProjectGraph) (*entities.Project, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	project := graph.Project
	if err := insertProject(ctx, tx, &project); err != nil {
		p.log.Errorw("failed to insert fork project", "error", err, "project_id", project.ID)
		return nil, err
	}

	for i := range graph.ItemTypes {
		it := &graph.ItemTypes[i]
		if _, err := tx.Exec(ctx, insertItemTypeQuery,
			it.ID, project.ID, it.OriginID, snapshot(it.OriginSnapshot), it.Title, it.Description, it.Color,
		); err != nil {
			p.log.Errorw("failed to clone item type", "error", err, "item_type_id", it.ID)
			return nil, entityWriteError("item type", it.ID, err)
		}
		it.ProjectID = project.ID
		if err := writeAttributes(ctx, tx, it); err != nil {
			return nil, err
		}
	}
	for _, item := range graph.Items {
		if _, err := tx.Exec(ctx, insertItemQuery,
			item.ID, project.ID, item.OriginID, snapshot(item.OriginSnapshot), item.ItemTypeID, item.ParentID,
			item.Title, item.Latitude, item.Longitude, jsonObject(item.Properties),
		); err != nil {
			p.log.Errorw("failed to clone hierarchy item", "error", err, "item_id", item.ID)
			return nil, entityWriteError("hierarchy item", item.ID, err)
		}
	}
	for _, layer := range graph.Layers {
		if _, err := tx.Exec(ctx, insertLayerQuery,
			layer.ID, project.ID, layer.OriginID, snapshot(layer.OriginSnapshot), layer.Title, layer.LayerType,
			jsonObject(layer.Style), jsonObject(layer.Geometry), layer.Visible, layer.Position,
		); err != nil {
			p.log.Errorw("failed to clone map layer", "error", err, "layer_id", layer.ID)
			return nil, entityWriteError("map layer", layer.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	p.log.Infow("clone stored", "project_id", project.ID, "item_types", len(graph.ItemTypes), "items", len(graph.Items), "layers", len(graph.Layers))
	return &project, nil
}
