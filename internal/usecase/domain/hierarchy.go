package domain

import (
	"fmt"
	"sort"

	"asset-fork-merge/internal/entities"
)

// depthsWithin computes each id's depth counting only ancestors inside the set.
// A parent chain that loops back is reported as ErrInvalidArgument.
func depthsWithin(parents map[string]*string) (map[string]int, error) {
	const visiting = -1
	depths := make(map[string]int, len(parents))

	var walk func(id string) (int, error)
	walk = func(id string) (int, error) {
		if d, ok := depths[id]; ok {
			if d == visiting {
				return 0, fmt.Errorf("%w: hierarchy cycle through item %s", entities.ErrInvalidArgument, id)
			}
			return d, nil
		}
		parent := parents[id]
		if parent == nil {
			depths[id] = 0
			return 0, nil
		}
		if _, inSet := parents[*parent]; !inSet {
			depths[id] = 0
			return 0, nil
		}
		depths[id] = visiting
		d, err := walk(*parent)
		if err != nil {
			return 0, err
		}
		depths[id] = d + 1
		return d + 1, nil
	}

	ids := make([]string, 0, len(parents))
	for id := range parents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := walk(id); err != nil {
			return nil, err
		}
	}
	return depths, nil
}

// orderParentsFirst sorts items so every parent precedes its children.
func orderParentsFirst(items []entities.HierarchyItem) ([]entities.HierarchyItem, error) {
	parents := make(map[string]*string, len(items))
	for _, item := range items {
		parents[item.ID] = item.ParentID
	}
	depths, err := depthsWithin(parents)
	if err != nil {
		return nil, err
	}
	out := append([]entities.HierarchyItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if depths[out[i].ID] != depths[out[j].ID] {
			return depths[out[i].ID] < depths[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
