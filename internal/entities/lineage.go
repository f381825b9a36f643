package entities

import (
	"encoding/json"
	"time"
)

// Lineage is the shared shape of every entity that can be cloned into a fork.
type Lineage struct {
	ID        string  `json:"id"`
	OriginID  *string `json:"origin_id,omitempty"`
	ProjectID string  `json:"project_id"`
	// OriginSnapshot is the master entity's content at clone time; nil outside forks.
	OriginSnapshot json.RawMessage `json:"-"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ItemType describes a kind of hierarchy item and its attribute definitions.
type ItemType struct {
	Lineage
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Color       string      `json:"color"`
	Attributes  []Attribute `json:"attributes"`
}

// Attribute is a field definition owned by an item type.
type Attribute struct {
	Lineage
	ItemTypeID string `json:"item_type_id"`
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Required   bool   `json:"required"`
	Position   int    `json:"position"`
}

// HierarchyItem is an asset or feature placed in the project tree.
type HierarchyItem struct {
	Lineage
	ItemTypeID *string        `json:"item_type_id,omitempty"`
	ParentID   *string        `json:"parent_id,omitempty"`
	Title      string         `json:"title"`
	Latitude   *float64       `json:"latitude,omitempty"`
	Longitude  *float64       `json:"longitude,omitempty"`
	Properties map[string]any `json:"properties"`
}

// MapLayer is a styled geometry layer of the project map.
type MapLayer struct {
	Lineage
	Title     string         `json:"title"`
	LayerType string         `json:"layer_type"`
	Style     map[string]any `json:"style"`
	Geometry  map[string]any `json:"geometry"`
	Visible   bool           `json:"visible"`
	Position  int            `json:"position"`
}
