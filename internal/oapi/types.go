// Package oapi provides primitives to interact with the fork/merge HTTP API.
package oapi

import "time"

// Defines values for ErrorResponseErrorCode.
const (
	CONFLICTSPENDING   ErrorResponseErrorCode = "CONFLICTS_PENDING"
	FORBIDDEN          ErrorResponseErrorCode = "FORBIDDEN"
	INVALIDARGUMENT    ErrorResponseErrorCode = "INVALID_ARGUMENT"
	INVALIDSTATE       ErrorResponseErrorCode = "INVALID_STATE"
	NOTFOUND           ErrorResponseErrorCode = "NOT_FOUND"
	PREXISTS           ErrorResponseErrorCode = "PR_EXISTS"
	TRANSACTIONFAILURE ErrorResponseErrorCode = "TRANSACTION_FAILURE"
)

// Defines values for PullRequestStatus.
const (
	PullRequestStatusClosed   PullRequestStatus = "closed"
	PullRequestStatusMerged   PullRequestStatus = "merged"
	PullRequestStatusOpen     PullRequestStatus = "open"
	PullRequestStatusRejected PullRequestStatus = "rejected"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error struct {
		Code    ErrorResponseErrorCode `json:"code"`
		Message string                 `json:"message"`
	} `json:"error"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// ErrorResponseErrorCode defines model for ErrorResponse.Error.Code.
type ErrorResponseErrorCode string

// Project defines model for Project.
type Project struct {
	ProjectId       string           `json:"project_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	OwnerId         string           `json:"owner_id"`
	IsMaster        bool             `json:"is_master"`
	ParentProjectId *string          `json:"parent_project_id,omitempty"`
	CloneSnapshot   *ProjectSnapshot `json:"clone_snapshot,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ProjectMetadata defines model for ProjectMetadata.
type ProjectMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProjectSnapshot defines model for ProjectSnapshot.
type ProjectSnapshot struct {
	Source ProjectMetadata `json:"source"`
	Target ProjectMetadata `json:"target"`
}

// ProjectGraph defines model for ProjectGraph.
type ProjectGraph struct {
	Project        Project         `json:"project"`
	ItemTypes      []ItemType      `json:"item_types"`
	HierarchyItems []HierarchyItem `json:"hierarchy_items"`
	MapLayers      []MapLayer      `json:"map_layers"`
}

// ItemType defines model for ItemType.
type ItemType struct {
	Id          string      `json:"id"`
	OriginId    *string     `json:"origin_id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Color       string      `json:"color"`
	Attributes  []Attribute `json:"attributes"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Attribute defines model for Attribute.
type Attribute struct {
	Id       string  `json:"id"`
	OriginId *string `json:"origin_id,omitempty"`
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Required bool    `json:"required"`
	Position int     `json:"position"`
}

// HierarchyItem defines model for HierarchyItem.
type HierarchyItem struct {
	Id         string         `json:"id"`
	OriginId   *string        `json:"origin_id,omitempty"`
	ItemTypeId *string        `json:"item_type_id,omitempty"`
	ParentId   *string        `json:"parent_id,omitempty"`
	Title      string         `json:"title"`
	Latitude   *float64       `json:"latitude,omitempty"`
	Longitude  *float64       `json:"longitude,omitempty"`
	Properties map[string]any `json:"properties"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// MapLayer defines model for MapLayer.
type MapLayer struct {
	Id        string         `json:"id"`
	OriginId  *string        `json:"origin_id,omitempty"`
	Title     string         `json:"title"`
	LayerType string         `json:"layer_type"`
	Style     map[string]any `json:"style"`
	Geometry  map[string]any `json:"geometry"`
	Visible   bool           `json:"visible"`
	Position  int            `json:"position"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PullRequest defines model for PullRequest.
type PullRequest struct {
	PullRequestId   string            `json:"pull_request_id"`
	SourceProjectId string            `json:"source_project_id"`
	TargetProjectId string            `json:"target_project_id"`
	CreatorId       string            `json:"creator_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Status          PullRequestStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	MergedAt        *time.Time        `json:"merged_at,omitempty"`
	MergedBy        *string           `json:"merged_by,omitempty"`
}

// PullRequestStatus defines model for PullRequest.Status.
type PullRequestStatus string

// Comment defines model for Comment.
type Comment struct {
	CommentId     string    `json:"comment_id"`
	PullRequestId string    `json:"pull_request_id"`
	AuthorId      string    `json:"author_id"`
	Body          string    `json:"body"`
	IsReview      bool      `json:"is_review"`
	ReviewAction  *string   `json:"review_action,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DiffEntry defines model for DiffEntry.
type DiffEntry struct {
	EntityCategory string `json:"entity_category"`
	EntityId       string `json:"entity_id"`
	ChangeType     string `json:"change_type"`
	OldData        any    `json:"old_data,omitempty"`
	NewData        any    `json:"new_data,omitempty"`
}

// Conflict defines model for Conflict.
type Conflict struct {
	EntityCategory string `json:"entity_category"`
	EntityId       string `json:"entity_id"`
	ConflictType   string `json:"conflict_type"`
	SourceData     any    `json:"source_data,omitempty"`
	TargetData     any    `json:"target_data,omitempty"`
}

// Resolution defines model for Resolution.
type Resolution struct {
	EntityCategory string `json:"entity_category"`
	EntityId       string `json:"entity_id"`
	Action         string `json:"action"`
}

// Diff defines model for Diff.
type Diff struct {
	PullRequestId   string      `json:"pull_request_id"`
	SourceProjectId string      `json:"source_project_id"`
	TargetProjectId string      `json:"target_project_id"`
	Entries         []DiffEntry `json:"entries"`
	Conflicts       []Conflict  `json:"conflicts"`
}

// MergeCounts defines model for MergeCounts.
type MergeCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Skipped  int `json:"skipped"`
}

// MergeResult defines model for MergeResult.
type MergeResult struct {
	Pr      PullRequest `json:"pr"`
	Applied MergeCounts `json:"applied"`
}

// PostProjectsJSONBody defines parameters for PostProjects.
type PostProjectsJSONBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PostProjectsProjectIdCloneJSONBody defines parameters for PostProjectsProjectIdClone.
type PostProjectsProjectIdCloneJSONBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PostPullRequestsJSONBody defines parameters for PostPullRequests.
type PostPullRequestsJSONBody struct {
	SourceProjectId string `json:"source_project_id"`
	TargetProjectId string `json:"target_project_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
}

// GetPullRequestsParams defines parameters for GetPullRequests.
type GetPullRequestsParams struct {
	ProjectId *string            `query:"project_id"`
	Status    *PullRequestStatus `query:"status"`
}

// PatchPullRequestsPrIdJSONBody defines parameters for PatchPullRequestsPrId.
type PatchPullRequestsPrIdJSONBody struct {
	Status PullRequestStatus `json:"status"`
}

// PostPullRequestsPrIdCommentsJSONBody defines parameters for PostPullRequestsPrIdComments.
type PostPullRequestsPrIdCommentsJSONBody struct {
	Body string `json:"body"`
}

// PostPullRequestsPrIdReviewsJSONBody defines parameters for PostPullRequestsPrIdReviews.
type PostPullRequestsPrIdReviewsJSONBody struct {
	Body   string `json:"body"`
	Action string `json:"action"`
}

// PostPullRequestsPrIdMergeJSONBody defines parameters for PostPullRequestsPrIdMerge.
type PostPullRequestsPrIdMergeJSONBody struct {
	Resolutions []Resolution `json:"resolutions"`
}

// PostProjectsJSONRequestBody defines body for PostProjects for application/json ContentType.
type PostProjectsJSONRequestBody = PostProjectsJSONBody

// PostProjectsProjectIdCloneJSONRequestBody defines body for PostProjectsProjectIdClone for application/json ContentType.
type PostProjectsProjectIdCloneJSONRequestBody = PostProjectsProjectIdCloneJSONBody

// PostPullRequestsJSONRequestBody defines body for PostPullRequests for application/json ContentType.
type PostPullRequestsJSONRequestBody = PostPullRequestsJSONBody

// PatchPullRequestsPrIdJSONRequestBody defines body for PatchPullRequestsPrId for application/json ContentType.
type PatchPullRequestsPrIdJSONRequestBody = PatchPullRequestsPrIdJSONBody

// PostPullRequestsPrIdCommentsJSONRequestBody defines body for PostPullRequestsPrIdComments for application/json ContentType.
type PostPullRequestsPrIdCommentsJSONRequestBody = PostPullRequestsPrIdCommentsJSONBody

// PostPullRequestsPrIdReviewsJSONRequestBody defines body for PostPullRequestsPrIdReviews for application/json ContentType.
type PostPullRequestsPrIdReviewsJSONRequestBody = PostPullRequestsPrIdReviewsJSONBody

// PostPullRequestsPrIdMergeJSONRequestBody defines body for PostPullRequestsPrIdMerge for application/json ContentType.
type PostPullRequestsPrIdMergeJSONRequestBody = PostPullRequestsPrIdMergeJSONBody
