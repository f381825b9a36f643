package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"asset-fork-merge/internal/entities"
)

// SaveItemType inserts or replaces an item type together with its attribute set.
func (m *Memory) SaveItemType(_ context.Context, itemType entities.ItemType) (*entities.ItemType, error) {
	var out entities.ItemType
	err := m.write(func(st *state) error {
		saved, err := st.putItemType(itemType, m.tick())
		out = saved
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteItemType removes an item type; items of that type lose their type.
func (m *Memory) DeleteItemType(_ context.Context, projectID, itemTypeID string) error {
	return m.write(func(st *state) error {
		if !st.removeItemType(projectID, itemTypeID) {
			return fmt.Errorf("%w: item type %s", entities.ErrEntityNotFound, itemTypeID)
		}
		return nil
	})
}

// SaveHierarchyItem inserts or replaces a hierarchy item.
func (m *Memory) SaveHierarchyItem(_ context.Context, item entities.HierarchyItem) (*entities.HierarchyItem, error) {
	var out entities.HierarchyItem
	err := m.write(func(st *state) error {
		saved, err := st.putItem(item, m.tick())
		out = saved
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteHierarchyItem removes an item; its children become roots.
func (m *Memory) DeleteHierarchyItem(_ context.Context, projectID, itemID string) error {
	return m.write(func(st *state) error {
		if !st.removeItem(projectID, itemID) {
			return fmt.Errorf("%w: hierarchy item %s", entities.ErrEntityNotFound, itemID)
		}
		return nil
	})
}

// SaveMapLayer inserts or replaces a map layer.
func (m *Memory) SaveMapLayer(_ context.Context, layer entities.MapLayer) (*entities.MapLayer, error) {
	var out entities.MapLayer
	err := m.write(func(st *state) error {
		saved, err := st.putLayer(layer, m.tick())
		out = saved
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMapLayer removes a map layer.
func (m *Memory) DeleteMapLayer(_ context.Context, projectID, layerID string) error {
	return m.write(func(st *state) error {
		if !st.removeLayer(projectID, layerID) {
			return fmt.Errorf("%w: map layer %s", entities.ErrEntityNotFound, layerID)
		}
		return nil
	})
}

func (s *state) requireProject(id string) (entities.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return entities.Project{}, fmt.Errorf("%w: %s", entities.ErrProjectNotFound, id)
	}
	return p, nil
}

func checkLineage(kind string, lin entities.Lineage) error {
	if lin.ID == "" || lin.ProjectID == "" {
		return fmt.Errorf("%w: %s needs id and project_id", entities.ErrInvalidArgument, kind)
	}
	return nil
}

func originClash(kind, projectID, selfID string, origin *string, rows func(yield func(entities.Lineage) bool)) error {
	if origin == nil {
		return nil
	}
	clash := false
	rows(func(l entities.Lineage) bool {
		if l.ProjectID == projectID && l.ID != selfID && l.OriginID != nil && *l.OriginID == *origin {
			clash = true
			return false
		}
		return true
	})
	if clash {
		return fmt.Errorf("%w: %s origin %s already tracked in project %s", entities.ErrInvalidArgument, kind, *origin, projectID)
	}
	return nil
}

func (s *state) putItemType(it entities.ItemType, at time.Time) (entities.ItemType, error) {
	if err := checkLineage("item type", it.Lineage); err != nil {
		return entities.ItemType{}, err
	}
	if _, err := s.requireProject(it.ProjectID); err != nil {
		return entities.ItemType{}, err
	}
	if prev, ok := s.itemTypes[it.ID]; ok && prev.ProjectID != it.ProjectID {
		return entities.ItemType{}, fmt.Errorf("%w: item type %s belongs to another project", entities.ErrInvalidArgument, it.ID)
	}
	err := originClash("item type", it.ProjectID, it.ID, it.OriginID, func(yield func(entities.Lineage) bool) {
		for _, other := range s.itemTypes {
			if !yield(other.Lineage) {
				return
			}
		}
	})
	if err != nil {
		return entities.ItemType{}, err
	}

	seen := make(map[string]struct{}, len(it.Attributes))
	for _, a := range it.Attributes {
		if a.ID == "" {
			return entities.ItemType{}, fmt.Errorf("%w: attribute needs an id", entities.ErrInvalidArgument)
		}
		if _, dup := seen[a.ID]; dup {
			return entities.ItemType{}, fmt.Errorf("%w: duplicate attribute %s", entities.ErrInvalidArgument, a.ID)
		}
		seen[a.ID] = struct{}{}
		for _, other := range s.itemTypes {
			if other.ID == it.ID {
				continue
			}
			for _, oa := range other.Attributes {
				if oa.ID == a.ID {
					return entities.ItemType{}, fmt.Errorf("%w: attribute %s belongs to item type %s", entities.ErrInvalidArgument, a.ID, other.ID)
				}
				if a.OriginID != nil && oa.OriginID != nil && *a.OriginID == *oa.OriginID && oa.ProjectID == it.ProjectID {
					return entities.ItemType{}, fmt.Errorf("%w: attribute origin %s already tracked", entities.ErrInvalidArgument, *a.OriginID)
				}
			}
		}
	}

	stored := copyItemType(it)
	stored.UpdatedAt = at
	for i := range stored.Attributes {
		stored.Attributes[i].ProjectID = it.ProjectID
		stored.Attributes[i].ItemTypeID = it.ID
		stored.Attributes[i].UpdatedAt = at
	}
	sortAttributes(stored.Attributes)
	s.itemTypes[it.ID] = stored
	return copyItemType(stored), nil
}

func (s *state) removeItemType(projectID, id string) bool {
	it, ok := s.itemTypes[id]
	if !ok || it.ProjectID != projectID {
		return false
	}
	delete(s.itemTypes, id)
	for itemID, item := range s.items {
		if item.ItemTypeID != nil && *item.ItemTypeID == id {
			item = copyItem(item)
			item.ItemTypeID = nil
			s.items[itemID] = item
		}
	}
	return true
}

func (s *state) putItem(item entities.HierarchyItem, at time.Time) (entities.HierarchyItem, error) {
	if err := checkLineage("hierarchy item", item.Lineage); err != nil {
		return entities.HierarchyItem{}, err
	}
	if _, err := s.requireProject(item.ProjectID); err != nil {
		return entities.HierarchyItem{}, err
	}
	if prev, ok := s.items[item.ID]; ok && prev.ProjectID != item.ProjectID {
		return entities.HierarchyItem{}, fmt.Errorf("%w: hierarchy item %s belongs to another project", entities.ErrInvalidArgument, item.ID)
	}
	if item.ItemTypeID != nil {
		it, ok := s.itemTypes[*item.ItemTypeID]
		if !ok || it.ProjectID != item.ProjectID {
			return entities.HierarchyItem{}, fmt.Errorf("%w: item type %s not in project", entities.ErrInvalidArgument, *item.ItemTypeID)
		}
	}
	if item.ParentID != nil {
		// Walk up from the new parent; reaching the item itself would close a loop.
		for cur := item.ParentID; cur != nil; {
			if *cur == item.ID {
				return entities.HierarchyItem{}, fmt.Errorf("%w: hierarchy cycle through item %s", entities.ErrInvalidArgument, item.ID)
			}
			parent, ok := s.items[*cur]
			if !ok || parent.ProjectID != item.ProjectID {
				return entities.HierarchyItem{}, fmt.Errorf("%w: parent %s not in project", entities.ErrInvalidArgument, *cur)
			}
			cur = parent.ParentID
		}
	}
	err := originClash("hierarchy item", item.ProjectID, item.ID, item.OriginID, func(yield func(entities.Lineage) bool) {
		for _, other := range s.items {
			if !yield(other.Lineage) {
				return
			}
		}
	})
	if err != nil {
		return entities.HierarchyItem{}, err
	}

	stored := copyItem(item)
	stored.UpdatedAt = at
	s.items[item.ID] = stored
	return copyItem(stored), nil
}

func (s *state) removeItem(projectID, id string) bool {
	item, ok := s.items[id]
	if !ok || item.ProjectID != projectID {
		return false
	}
	delete(s.items, id)
	for childID, child := range s.items {
		if child.ParentID != nil && *child.ParentID == id {
			child = copyItem(child)
			child.ParentID = nil
			s.items[childID] = child
		}
	}
	return true
}

func (s *state) putLayer(layer entities.MapLayer, at time.Time) (entities.MapLayer, error) {
	if err := checkLineage("map layer", layer.Lineage); err != nil {
		return entities.MapLayer{}, err
	}
	if _, err := s.requireProject(layer.ProjectID); err != nil {
		return entities.MapLayer{}, err
	}
	if prev, ok := s.layers[layer.ID]; ok && prev.ProjectID != layer.ProjectID {
		return entities.MapLayer{}, fmt.Errorf("%w: map layer %s belongs to another project", entities.ErrInvalidArgument, layer.ID)
	}
	err := originClash("map layer", layer.ProjectID, layer.ID, layer.OriginID, func(yield func(entities.Lineage) bool) {
		for _, other := range s.layers {
			if !yield(other.Lineage) {
				return
			}
		}
	})
	if err != nil {
		return entities.MapLayer{}, err
	}

	stored := copyLayer(layer)
	stored.UpdatedAt = at
	s.layers[layer.ID] = stored
	return copyLayer(stored), nil
}

func (s *state) removeLayer(projectID, id string) bool {
	layer, ok := s.layers[id]
	if !ok || layer.ProjectID != projectID {
		return false
	}
	delete(s.layers, id)
	return true
}

func sortAttributes(list []entities.Attribute) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Position != list[j].Position {
			return list[i].Position < list[j].Position
		}
		return list[i].ID < list[j].ID
	})
}
