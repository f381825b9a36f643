// Package entities contains core business entities.
package entities

import "time"

// Project is the root of an entity graph. A project with ParentProjectID set is a fork.
type Project struct {
	ID              string
	Title           string
	Description     string
	OwnerID         string
	IsMaster        bool
	ParentProjectID *string
	CloneSnapshot   *ProjectSnapshot
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsFork reports whether the project was cloned from a master.
func (p Project) IsFork() bool {
	return p.ParentProjectID != nil
}

// Metadata returns the mergeable project fields.
func (p Project) Metadata() ProjectMetadata {
	return ProjectMetadata{Title: p.Title, Description: p.Description}
}

// ProjectMetadata holds the project fields that take part in a diff.
type ProjectMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProjectSnapshot records both sides' metadata at clone time.
type ProjectSnapshot struct {
	Source ProjectMetadata `json:"source"`
	Target ProjectMetadata `json:"target"`
}

// ProjectGraph is a project together with every lineage-bearing entity it owns.
type ProjectGraph struct {
	Project   Project
	ItemTypes []ItemType
	Items     []HierarchyItem
	Layers    []MapLayer
}
