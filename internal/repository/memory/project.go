package memory

import (
	"context"
	"fmt"
	"sort"

	"asset-fork-merge/internal/entities"
)

// CreateProject stores a new project.
func (m *Memory) CreateProject(_ context.Context, project entities.Project) (*entities.Project, error) {
	var out entities.Project
	err := m.write(func(st *state) error {
		saved, err := st.insertProject(project, m)
		out = saved
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *state) insertProject(project entities.Project, m *Memory) (entities.Project, error) {
	if project.ID == "" {
		return entities.Project{}, fmt.Errorf("%w: project id is required", entities.ErrInvalidArgument)
	}
	if _, ok := s.projects[project.ID]; ok {
		return entities.Project{}, fmt.Errorf("%w: project %s already exists", entities.ErrInvalidArgument, project.ID)
	}
	if project.ParentProjectID != nil {
		if _, err := s.requireProject(*project.ParentProjectID); err != nil {
			return entities.Project{}, err
		}
	}
	stored := copyProject(project)
	now := m.tick()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.projects[project.ID] = stored
	return copyProject(stored), nil
}

// GetProject returns a project without its entities.
func (m *Memory) GetProject(_ context.Context, projectID string) (*entities.Project, error) {
	var out entities.Project
	err := m.read(func(st *state) error {
		p, err := st.requireProject(projectID)
		out = copyProject(p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProjectMetadata rewrites title and description.
func (m *Memory) UpdateProjectMetadata(_ context.Context, projectID string, meta entities.ProjectMetadata) (*entities.Project, error) {
	var out entities.Project
	err := m.write(func(st *state) error {
		p, err := st.requireProject(projectID)
		if err != nil {
			return err
		}
		p = copyProject(p)
		p.Title = meta.Title
		p.Description = meta.Description
		p.UpdatedAt = m.tick()
		st.projects[projectID] = p
		out = copyProject(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadGraph returns a consistent copy of a project and all of its entities.
func (m *Memory) LoadGraph(_ context.Context, projectID string) (*entities.ProjectGraph, error) {
	var out entities.ProjectGraph
	err := m.read(func(st *state) error {
		p, err := st.requireProject(projectID)
		if err != nil {
			return err
		}
		out = st.graph(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *state) graph(p entities.Project) entities.ProjectGraph {
	g := entities.ProjectGraph{
		Project:   copyProject(p),
		ItemTypes: make([]entities.ItemType, 0),
		Items:     make([]entities.HierarchyItem, 0),
		Layers:    make([]entities.MapLayer, 0),
	}
	for _, it := range s.itemTypes {
		if it.ProjectID == p.ID {
			g.ItemTypes = append(g.ItemTypes, copyItemType(it))
		}
	}
	for _, item := range s.items {
		if item.ProjectID == p.ID {
			g.Items = append(g.Items, copyItem(item))
		}
	}
	for _, layer := range s.layers {
		if layer.ProjectID == p.ID {
			g.Layers = append(g.Layers, copyLayer(layer))
		}
	}
	sort.Slice(g.ItemTypes, func(i, j int) bool { return g.ItemTypes[i].ID < g.ItemTypes[j].ID })
	sort.Slice(g.Items, func(i, j int) bool { return g.Items[i].ID < g.Items[j].ID })
	sort.Slice(g.Layers, func(i, j int) bool {
		if g.Layers[i].Position != g.Layers[j].Position {
			return g.Layers[i].Position < g.Layers[j].Position
		}
		return g.Layers[i].ID < g.Layers[j].ID
	})
	return g
}

// CreateClone stores a cloned project graph in one step; items must come parents first.
func (m *Memory) CreateClone(_ context.Context, graph entities.ProjectGraph) (*entities.Project, error) {
	var out entities.Project
	err := m.write(func(st *state) error {
		project, err := st.insertProject(graph.Project, m)
		if err != nil {
			return err
		}
		at := project.CreatedAt
		for _, it := range graph.ItemTypes {
			if it.ProjectID != project.ID {
				return fmt.Errorf("%w: item type %s is not part of the clone", entities.ErrInvalidArgument, it.ID)
			}
			if _, err := st.putItemType(it, at); err != nil {
				return err
			}
		}
		for _, item := range graph.Items {
			if item.ProjectID != project.ID {
				return fmt.Errorf("%w: hierarchy item %s is not part of the clone", entities.ErrInvalidArgument, item.ID)
			}
			if _, err := st.putItem(item, at); err != nil {
				return err
			}
		}
		for _, layer := range graph.Layers {
			if layer.ProjectID != project.ID {
				return fmt.Errorf("%w: map layer %s is not part of the clone", entities.ErrInvalidArgument, layer.ID)
			}
			if _, err := st.putLayer(layer, at); err != nil {
				return err
			}
		}
		out = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Debugw("clone stored", "project_id", out.ID, "item_types", len(graph.ItemTypes), "items", len(graph.Items), "layers", len(graph.Layers))
	return &out, nil
}
