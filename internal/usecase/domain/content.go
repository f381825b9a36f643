package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"asset-fork-merge/internal/entities"
)

// forkRefPrefix marks a reference to an entity that exists only in the fork.
const forkRefPrefix = "fork:"

// refResolver translates a project-local id into master space.
type refResolver func(id string) string

func identityRef(id string) string { return id }

func originRef(origins map[string]*string) refResolver {
	return func(id string) string {
		if origin := origins[id]; origin != nil {
			return *origin
		}
		return forkRefPrefix + id
	}
}

func resolveOptional(id *string, ref refResolver) *string {
	if id == nil {
		return nil
	}
	resolved := ref(*id)
	return &resolved
}

type attributeContent struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Required bool   `json:"required"`
	Position int    `json:"position"`
}

type itemTypeContent struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       string             `json:"color"`
	Attributes  []attributeContent `json:"attributes"`
}

type hierarchyItemContent struct {
	ItemType   *string        `json:"item_type"`
	Parent     *string        `json:"parent"`
	Title      string         `json:"title"`
	Latitude   *float64       `json:"latitude"`
	Longitude  *float64       `json:"longitude"`
	Properties map[string]any `json:"properties"`
}

type mapLayerContent struct {
	Title     string         `json:"title"`
	LayerType string         `json:"layer_type"`
	Style     map[string]any `json:"style"`
	Geometry  map[string]any `json:"geometry"`
	Visible   bool           `json:"visible"`
	Position  int            `json:"position"`
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// canonical encodes v with sorted map keys so equal content compares byte-equal.
func canonical(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return b, nil
}

// recanonical re-encodes a stored snapshot through the content type C.
// Stores may hand JSON back with reordered keys and different spacing.
func recanonical[C any](raw json.RawMessage) ([]byte, error) {
	var content C
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return canonical(content)
}

func itemTypeContentOf(it entities.ItemType, attrRef refResolver) ([]byte, error) {
	attrs := make([]attributeContent, 0, len(it.Attributes))
	for _, a := range it.Attributes {
		attrs = append(attrs, attributeContent{
			Key:      attrRef(a.ID),
			Name:     a.Name,
			DataType: a.DataType,
			Required: a.Required,
			Position: a.Position,
		})
	}
	sort.Slice(attrs, func(i, j int) bool {
		if attrs[i].Position != attrs[j].Position {
			return attrs[i].Position < attrs[j].Position
		}
		return attrs[i].Key < attrs[j].Key
	})
	return canonical(itemTypeContent{
		Title:       it.Title,
		Description: it.Description,
		Color:       it.Color,
		Attributes:  attrs,
	})
}

func hierarchyItemContentOf(item entities.HierarchyItem, typeRef, itemRef refResolver) ([]byte, error) {
	return canonical(hierarchyItemContent{
		ItemType:   resolveOptional(item.ItemTypeID, typeRef),
		Parent:     resolveOptional(item.ParentID, itemRef),
		Title:      item.Title,
		Latitude:   item.Latitude,
		Longitude:  item.Longitude,
		Properties: nonNilMap(item.Properties),
	})
}

func mapLayerContentOf(layer entities.MapLayer) ([]byte, error) {
	return canonical(mapLayerContent{
		Title:     layer.Title,
		LayerType: layer.LayerType,
		Style:     nonNilMap(layer.Style),
		Geometry:  nonNilMap(layer.Geometry),
		Visible:   layer.Visible,
		Position:  layer.Position,
	})
}

// graphRefs holds the resolvers that map a graph's ids into master space.
type graphRefs struct {
	itemType  refResolver
	item      refResolver
	attribute refResolver
}

func masterRefs() graphRefs {
	return graphRefs{itemType: identityRef, item: identityRef, attribute: identityRef}
}

func forkRefs(g *entities.ProjectGraph) graphRefs {
	types := make(map[string]*string, len(g.ItemTypes))
	attrs := make(map[string]*string)
	for _, it := range g.ItemTypes {
		types[it.ID] = it.OriginID
		for _, a := range it.Attributes {
			attrs[a.ID] = a.OriginID
		}
	}
	items := make(map[string]*string, len(g.Items))
	for _, item := range g.Items {
		items[item.ID] = item.OriginID
	}
	return graphRefs{itemType: originRef(types), item: originRef(items), attribute: originRef(attrs)}
}
