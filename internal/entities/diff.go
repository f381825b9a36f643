package entities

// EntityCategory names a group of entities diffed independently.
type EntityCategory string

const (
	CategoryProjectMetadata EntityCategory = "project_metadata"
	CategoryHierarchyItem   EntityCategory = "hierarchy_item"
	CategoryItemType        EntityCategory = "item_type"
	CategoryMapLayer        EntityCategory = "map_layer"
)

// Categories lists every category in report order.
var Categories = []EntityCategory{
	CategoryProjectMetadata,
	CategoryHierarchyItem,
	CategoryItemType,
	CategoryMapLayer,
}

// Valid reports whether c is a known category.
func (c EntityCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Rank is the position of c in report order.
func (c EntityCategory) Rank() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return len(Categories)
}

// ChangeType classifies a diff entry.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// ConflictType classifies a conflict.
type ConflictType string

const (
	ConflictConcurrentModification ConflictType = "concurrent_modification"
	ConflictDeletedVsModified      ConflictType = "deleted_vs_modified"
)

// ResolutionAction picks the winning side of a conflict.
type ResolutionAction string

const (
	KeepSource ResolutionAction = "keep_source"
	KeepTarget ResolutionAction = "keep_target"
)

// Valid reports whether a is a known action.
func (a ResolutionAction) Valid() bool {
	return a == KeepSource || a == KeepTarget
}

// EntityKey identifies an entity across the diff, conflicts and resolutions.
type EntityKey struct {
	Category EntityCategory
	EntityID string
}

// DiffEntry is one change the fork made relative to its master.
type DiffEntry struct {
	Category   EntityCategory `json:"entity_category"`
	EntityID   string         `json:"entity_id"`
	ChangeType ChangeType     `json:"change_type"`
	OldData    any            `json:"old_data,omitempty"`
	NewData    any            `json:"new_data,omitempty"`
}

// Key returns the entry's identity.
func (d DiffEntry) Key() EntityKey {
	return EntityKey{Category: d.Category, EntityID: d.EntityID}
}

// Conflict marks a lineage both sides changed independently.
type Conflict struct {
	Category     EntityCategory `json:"entity_category"`
	EntityID     string         `json:"entity_id"`
	ConflictType ConflictType   `json:"conflict_type"`
	SourceData   any            `json:"source_data,omitempty"`
	TargetData   any            `json:"target_data,omitempty"`
}

// Key returns the conflict's identity.
func (c Conflict) Key() EntityKey {
	return EntityKey{Category: c.Category, EntityID: c.EntityID}
}

// Resolution is the caller's choice for one conflict.
type Resolution struct {
	Category EntityCategory   `json:"entity_category"`
	EntityID string           `json:"entity_id"`
	Action   ResolutionAction `json:"action"`
}

// Key returns the conflict the resolution refers to.
func (r Resolution) Key() EntityKey {
	return EntityKey{Category: r.Category, EntityID: r.EntityID}
}

// Diff is the freshly computed change set of a PR.
type Diff struct {
	PullRequestID   string      `json:"pull_request_id"`
	SourceProjectID string      `json:"source_project_id"`
	TargetProjectID string      `json:"target_project_id"`
	Entries         []DiffEntry `json:"entries"`
	Conflicts       []Conflict  `json:"conflicts"`
}
