// Package repository contains repository interfaces for persistence layers.
package repository

import (
	"context"

	"asset-fork-merge/internal/entities"
)

// LifecycleInterface describes storage startup/shutdown hooks.
type LifecycleInterface interface {
	OnStart(_ context.Context) error
	OnStop(_ context.Context) error
}

// ProjectInterface exposes project-level operations.
type ProjectInterface interface {
	CreateProject(ctx context.Context, project entities.Project) (*entities.Project, error)
	GetProject(ctx context.Context, projectID string) (*entities.Project, error)
	UpdateProjectMetadata(ctx context.Context, projectID string, meta entities.ProjectMetadata) (*entities.Project, error)
	// LoadGraph bulk-fetches a project and every lineage-bearing entity it owns.
	LoadGraph(ctx context.Context, projectID string) (*entities.ProjectGraph, error)
	// CreateClone persists a freshly cloned graph all-or-nothing.
	CreateClone(ctx context.Context, graph entities.ProjectGraph) (*entities.Project, error)
}

// EntityInterface exposes single-row writes used by the editing layer.
type EntityInterface interface {
	SaveItemType(ctx context.Context, itemType entities.ItemType) (*entities.ItemType, error)
	DeleteItemType(ctx context.Context, projectID, itemTypeID string) error
	SaveHierarchyItem(ctx context.Context, item entities.HierarchyItem) (*entities.HierarchyItem, error)
	DeleteHierarchyItem(ctx context.Context, projectID, itemID string) error
	SaveMapLayer(ctx context.Context, layer entities.MapLayer) (*entities.MapLayer, error)
	DeleteMapLayer(ctx context.Context, projectID, layerID string) error
}

// PullRequestInterface exposes PR-related operations.
type PullRequestInterface interface {
	CreatePR(ctx context.Context, pr entities.PullRequest) (*entities.PullRequest, error)
	GetPR(ctx context.Context, prID string) (*entities.PullRequest, error)
	ListPRs(ctx context.Context, filter entities.PullRequestFilter) ([]entities.PullRequest, error)
	// TransitionPR moves an open PR to a terminal status; ErrInvalidState if it is no longer open.
	TransitionPR(ctx context.Context, prID string, to entities.PullRequestStatus) (*entities.PullRequest, error)
}

// CommentInterface exposes discussion operations.
type CommentInterface interface {
	// CreateComment stores a comment while the PR is open; ErrInvalidState otherwise.
	CreateComment(ctx context.Context, comment entities.Comment) (*entities.Comment, error)
	ListComments(ctx context.Context, prID string) ([]entities.Comment, error)
}

// MergeInterface exposes the transactional merge apply.
type MergeInterface interface {
	// ApplyMerge writes the set and marks the PR merged in one transaction.
	ApplyMerge(ctx context.Context, set entities.MergeSet) (*entities.PullRequest, error)
}
