package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"asset-fork-merge/internal/entities"

	"github.com/jackc/pgx/v5"
)

const (
	selectItemTypesQuery = `SELECT id, project_id, origin_id, origin_snapshot, title, description, color, updated_at
		FROM item_types WHERE project_id=$1 ORDER BY id`
	selectAttributesQuery = `SELECT id, item_type_id, project_id, origin_id, origin_snapshot, name, data_type, required, position, updated_at
		FROM attributes WHERE project_id=$1 ORDER BY item_type_id, position, id`
	selectItemsQuery = `SELECT id, project_id, origin_id, origin_snapshot, item_type_id, parent_id, title, latitude, longitude, properties, updated_at
		FROM hierarchy_items WHERE project_id=$1 ORDER BY id`
	selectLayersQuery = `SELECT id, project_id, origin_id, origin_snapshot, title, layer_type, style, geometry, visible, position, updated_at
		FROM map_layers WHERE project_id=$1 ORDER BY position, id`

	upsertItemTypeQuery = `INSERT INTO item_types(id, project_id, origin_id, origin_snapshot, title, description, color, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (id) DO UPDATE SET origin_id=EXCLUDED.origin_id, origin_snapshot=EXCLUDED.origin_snapshot,
			title=EXCLUDED.title, description=EXCLUDED.description, color=EXCLUDED.color, updated_at=NOW()
		WHERE item_types.project_id=EXCLUDED.project_id
		RETURNING updated_at`
	insertItemTypeQuery = `INSERT INTO item_types(id, project_id, origin_id, origin_snapshot, title, description, color, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`
	updateItemTypeQuery = `UPDATE item_types SET title=$3, description=$4, color=$5, updated_at=NOW()
		WHERE id=$1 AND project_id=$2 AND ($6::timestamptz IS NULL OR updated_at=$6)`
	deleteItemTypeQuery = `DELETE FROM item_types WHERE id=$1 AND project_id=$2`

	pruneAttributesQuery = `DELETE FROM attributes WHERE item_type_id=$1 AND NOT (id = ANY($2))`
	upsertAttributeQuery = `INSERT INTO attributes(id, item_type_id, project_id, origin_id, origin_snapshot, name, data_type, required, position, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
		ON CONFLICT (id) DO UPDATE SET origin_id=EXCLUDED.origin_id, origin_snapshot=EXCLUDED.origin_snapshot,
			name=EXCLUDED.name, data_type=EXCLUDED.data_type, required=EXCLUDED.required, position=EXCLUDED.position, updated_at=NOW()
		WHERE attributes.item_type_id=EXCLUDED.item_type_id
		RETURNING updated_at`

	upsertItemQuery = `INSERT INTO hierarchy_items(id, project_id, origin_id, origin_snapshot, item_type_id, parent_id, title, latitude, longitude, properties, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
		ON CONFLICT (id) DO UPDATE SET origin_id=EXCLUDED.origin_id, origin_snapshot=EXCLUDED.origin_snapshot,
			item_type_id=EXCLUDED.item_type_id, parent_id=EXCLUDED.parent_id, title=EXCLUDED.title,
			latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude, properties=EXCLUDED.properties, updated_at=NOW()
		WHERE hierarchy_items.project_id=EXCLUDED.project_id
		RETURNING updated_at`
	insertItemQuery = `INSERT INTO hierarchy_items(id, project_id, origin_id, origin_snapshot, item_type_id, parent_id, title, latitude, longitude, properties, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())`
	updateItemQuery = `UPDATE hierarchy_items SET item_type_id=$3, parent_id=$4, title=$5, latitude=$6, longitude=$7, properties=$8, updated_at=NOW()
		WHERE id=$1 AND project_id=$2 AND ($9::timestamptz IS NULL OR updated_at=$9)`
	deleteItemQuery = `DELETE FROM hierarchy_items WHERE id=$1 AND project_id=$2`

	itemTypeInProjectQuery = `SELECT EXISTS(SELECT 1 FROM item_types WHERE id=$1 AND project_id=$2)`
	itemInProjectQuery     = `SELECT EXISTS(SELECT 1 FROM hierarchy_items WHERE id=$1 AND project_id=$2)`
	ancestorQuery          = `WITH RECURSIVE chain(id, parent_id) AS (
			SELECT id, parent_id FROM hierarchy_items WHERE id=$1
			UNION ALL
			SELECT h.id, h.parent_id FROM hierarchy_items h JOIN chain c ON h.id=c.parent_id
		)
		SELECT EXISTS(SELECT 1 FROM chain WHERE id=$2)`

	upsertLayerQuery = `INSERT INTO map_layers(id, project_id, origin_id, origin_snapshot, title, layer_type, style, geometry, visible, position, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
		ON CONFLICT (id) DO UPDATE SET origin_id=EXCLUDED.origin_id, origin_snapshot=EXCLUDED.origin_snapshot,
			title=EXCLUDED.title, layer_type=EXCLUDED.layer_type, style=EXCLUDED.style, geometry=EXCLUDED.geometry,
			visible=EXCLUDED.visible, position=EXCLUDED.position, updated_at=NOW()
		WHERE map_layers.project_id=EXCLUDED.project_id
		RETURNING updated_at`
	insertLayerQuery = `INSERT INTO map_layers(id, project_id, origin_id, origin_snapshot, title, layer_type, style, geometry, visible, position, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())`
	updateLayerQuery = `UPDATE map_layers SET title=$3, layer_type=$4, style=$5, geometry=$6, visible=$7, position=$8, updated_at=NOW()
		WHERE id=$1 AND project_id=$2 AND ($9::timestamptz IS NULL OR updated_at=$9)`
	deleteLayerQuery = `DELETE FROM map_layers WHERE id=$1 AND project_id=$2`

	projectExistsQuery = `SELECT EXISTS(SELECT 1 FROM projects WHERE id=$1)`
)

// SaveItemType inserts or replaces an item type and its attribute set.
func (p *Postgres) SaveItemType(ctx context.Context, itemType entities.ItemType) (*entities.ItemType, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireProject(ctx, tx, itemType.ProjectID); err != nil {
		return nil, err
	}
	if err := tx.QueryRow(ctx, upsertItemTypeQuery,
		itemType.ID, itemType.ProjectID, itemType.OriginID, snapshot(itemType.OriginSnapshot),
		itemType.Title, itemType.Description, itemType.Color,
	).Scan(&itemType.UpdatedAt); err != nil {
		p.log.Errorw("failed to upsert item type", "error", err, "item_type_id", itemType.ID)
		return nil, entityWriteError("item type", itemType.ID, err)
	}
	if err := writeAttributes(ctx, tx, &itemType); err != nil {
		p.log.Errorw("failed to write attributes", "error", err, "item_type_id", itemType.ID)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &itemType, nil
}

// DeleteItemType removes an item type; the schema clears item references.
func (p *Postgres) DeleteItemType(ctx context.Context, projectID, itemTypeID string) error {
	return p.deleteRow(ctx, deleteItemTypeQuery, "item type", projectID, itemTypeID)
}

// SaveHierarchyItem inserts or replaces a hierarchy item.
func (p *Postgres) SaveHierarchyItem(ctx context.Context, item entities.HierarchyItem) (*entities.HierarchyItem, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireProject(ctx, tx, item.ProjectID); err != nil {
		return nil, err
	}
	if err := checkItemRefs(ctx, tx, item); err != nil {
		return nil, err
	}
	if err := tx.QueryRow(ctx, upsertItemQuery,
		item.ID, item.ProjectID, item.OriginID, snapshot(item.OriginSnapshot),
		item.ItemTypeID, item.ParentID, item.Title, item.Latitude, item.Longitude, jsonObject(item.Properties),
	).Scan(&item.UpdatedAt); err != nil {
		p.log.Errorw("failed to upsert hierarchy item", "error", err, "item_id", item.ID)
		return nil, entityWriteError("hierarchy item", item.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteHierarchyItem removes an item; the schema turns its children into roots.
func (p *Postgres) DeleteHierarchyItem(ctx context.Context, projectID, itemID string) error {
	return p.deleteRow(ctx, deleteItemQuery, "hierarchy item", projectID, itemID)
}

// SaveMapLayer inserts or replaces a map layer.
func (p *Postgres) SaveMapLayer(ctx context.Context, layer entities.MapLayer) (*entities.MapLayer, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireProject(ctx, tx, layer.ProjectID); err != nil {
		return nil, err
	}
	if err := tx.QueryRow(ctx, upsertLayerQuery,
		layer.ID, layer.ProjectID, layer.OriginID, snapshot(layer.OriginSnapshot),
		layer.Title, layer.LayerType, jsonObject(layer.Style), jsonObject(layer.Geometry), layer.Visible, layer.Position,
	).Scan(&layer.UpdatedAt); err != nil {
		p.log.Errorw("failed to upsert map layer", "error", err, "layer_id", layer.ID)
		return nil, entityWriteError("map layer", layer.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &layer, nil
}

// DeleteMapLayer removes a map layer.
func (p *Postgres) DeleteMapLayer(ctx context.Context, projectID, layerID string) error {
	return p.deleteRow(ctx, deleteLayerQuery, "map layer", projectID, layerID)
}

func (p *Postgres) deleteRow(ctx context.Context, query, kind, projectID, id string) error {
	tag, err := p.db.Exec(ctx, query, id, projectID)
	if err != nil {
		p.log.Errorw("failed to delete row", "error", err, "kind", kind, "id", id)
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", entities.ErrEntityNotFound, kind, id)
	}
	return nil
}

func requireProject(ctx context.Context, q querier, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("%w: project_id is required", entities.ErrInvalidArgument)
	}
	var exists bool
	if err := q.QueryRow(ctx, projectExistsQuery, projectID).Scan(&exists); err != nil {
		return fmt.Errorf("project lookup: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", entities.ErrProjectNotFound, projectID)
	}
	return nil
}

// checkItemRefs verifies an item's references stay inside its project and keep the tree acyclic.
func checkItemRefs(ctx context.Context, q querier, item entities.HierarchyItem) error {
	if item.ItemTypeID != nil {
		var ok bool
		if err := q.QueryRow(ctx, itemTypeInProjectQuery, *item.ItemTypeID, item.ProjectID).Scan(&ok); err != nil {
			return fmt.Errorf("item type lookup: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: item type %s not in project", entities.ErrInvalidArgument, *item.ItemTypeID)
		}
	}
	if item.ParentID == nil {
		return nil
	}
	if *item.ParentID == item.ID {
		return fmt.Errorf("%w: item %s cannot be its own parent", entities.ErrInvalidArgument, item.ID)
	}
	var ok bool
	if err := q.QueryRow(ctx, itemInProjectQuery, *item.ParentID, item.ProjectID).Scan(&ok); err != nil {
		return fmt.Errorf("parent lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: parent %s not in project", entities.ErrInvalidArgument, *item.ParentID)
	}
	var loops bool
	if err := q.QueryRow(ctx, ancestorQuery, *item.ParentID, item.ID).Scan(&loops); err != nil {
		return fmt.Errorf("ancestor lookup: %w", err)
	}
	if loops {
		return fmt.Errorf("%w: hierarchy cycle through item %s", entities.ErrInvalidArgument, item.ID)
	}
	return nil
}

func writeAttributes(ctx context.Context, q querier, it *entities.ItemType) error {
	ids := make([]string, 0, len(it.Attributes))
	for _, a := range it.Attributes {
		ids = append(ids, a.ID)
	}
	if _, err := q.Exec(ctx, pruneAttributesQuery, it.ID, ids); err != nil {
		return fmt.Errorf("prune attributes: %w", err)
	}
	for i := range it.Attributes {
		a := &it.Attributes[i]
		if a.ID == "" {
			return fmt.Errorf("%w: attribute needs an id", entities.ErrInvalidArgument)
		}
		a.ItemTypeID = it.ID
		a.ProjectID = it.ProjectID
		if err := q.QueryRow(ctx, upsertAttributeQuery,
			a.ID, it.ID, it.ProjectID, a.OriginID, snapshot(a.OriginSnapshot), a.Name, a.DataType, a.Required, a.Position,
		).Scan(&a.UpdatedAt); err != nil {
			return entityWriteError("attribute", a.ID, err)
		}
	}
	return nil
}

// entityWriteError classifies a failed upsert. No returned row means the id belongs to another project.
func entityWriteError(kind, id string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %s %s belongs to another owner", entities.ErrInvalidArgument, kind, id)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s %s duplicates a tracked origin", entities.ErrInvalidArgument, kind, id)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %s %s references a missing row", entities.ErrInvalidArgument, kind, id)
	default:
		return fmt.Errorf("write %s: %w", kind, err)
	}
}

// snapshot maps an empty snapshot to SQL NULL.
func snapshot(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func jsonObject(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func selectItemTypes(ctx context.Context, q querier, projectID string) ([]entities.ItemType, error) {
	rows, err := q.Query(ctx, selectItemTypesQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("select item types: %w", err)
	}
	defer rows.Close()

	out := make([]entities.ItemType, 0)
	index := make(map[string]int)
	for rows.Next() {
		var it entities.ItemType
		if err := rows.Scan(&it.ID, &it.ProjectID, &it.OriginID, &it.OriginSnapshot, &it.Title, &it.Description, &it.Color, &it.UpdatedAt); err != nil {
			return nil, err
		}
		it.Attributes = make([]entities.Attribute, 0)
		index[it.ID] = len(out)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attrRows, err := q.Query(ctx, selectAttributesQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("select attributes: %w", err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var a entities.Attribute
		if err := attrRows.Scan(&a.ID, &a.ItemTypeID, &a.ProjectID, &a.OriginID, &a.OriginSnapshot,
			&a.Name, &a.DataType, &a.Required, &a.Position, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[a.ItemTypeID]; ok {
			out[i].Attributes = append(out[i].Attributes, a)
		}
	}
	return out, attrRows.Err()
}

func selectItems(ctx context.Context, q querier, projectID string) ([]entities.HierarchyItem, error) {
	rows, err := q.Query(ctx, selectItemsQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("select hierarchy items: %w", err)
	}
	defer rows.Close()

	out := make([]entities.HierarchyItem, 0)
	for rows.Next() {
		var item entities.HierarchyItem
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.OriginID, &item.OriginSnapshot, &item.ItemTypeID, &item.ParentID,
			&item.Title, &item.Latitude, &item.Longitude, &item.Properties, &item.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func selectLayers(ctx context.Context, q querier, projectID string) ([]entities.MapLayer, error) {
	rows, err := q.Query(ctx, selectLayersQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("select map layers: %w", err)
	}
	defer rows.Close()

	out := make([]entities.MapLayer, 0)
	for rows.Next() {
		var layer entities.MapLayer
		if err := rows.Scan(&layer.ID, &layer.ProjectID, &layer.OriginID, &layer.OriginSnapshot, &layer.Title, &layer.LayerType,
			&layer.Style, &layer.Geometry, &layer.Visible, &layer.Position, &layer.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, layer)
	}
	return out, rows.Err()
}

// expected turns an optional guard into a nullable timestamp parameter.
func expected(at *time.Time) any {
	if at == nil {
		return nil
	}
	return *at
}
