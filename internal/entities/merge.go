package entities

import "time"

// MergeOp is the kind of row operation a merge performs.
type MergeOp string

const (
	OpInsert MergeOp = "insert"
	OpUpdate MergeOp = "update"
	OpDelete MergeOp = "delete"
)

// ItemTypeChange applies one item type (with its attributes) to the target.
type ItemTypeChange struct {
	Op       MergeOp
	ItemType ItemType
	// ExpectedUpdatedAt guards updates against rows edited after the diff was read.
	ExpectedUpdatedAt *time.Time
}

// HierarchyItemChange applies one hierarchy item to the target.
type HierarchyItemChange struct {
	Op                MergeOp
	Item              HierarchyItem
	ExpectedUpdatedAt *time.Time
}

// MapLayerChange applies one map layer to the target.
type MapLayerChange struct {
	Op                MergeOp
	Layer             MapLayer
	ExpectedUpdatedAt *time.Time
}

// MetadataChange rewrites the target project's metadata.
type MetadataChange struct {
	Metadata          ProjectMetadata
	ExpectedUpdatedAt time.Time
}

// MergeSet is a validated change set in target-project ids, applied in one transaction.
// Items are ordered parents before children.
type MergeSet struct {
	PullRequestID   string
	TargetProjectID string
	MergedBy        string
	ItemTypes       []ItemTypeChange
	Items           []HierarchyItemChange
	Layers          []MapLayerChange
	Metadata        *MetadataChange
	Skipped         int
}

// Counts summarises the operations of the set.
func (s MergeSet) Counts() MergeCounts {
	c := MergeCounts{Skipped: s.Skipped}
	tally := func(op MergeOp) {
		switch op {
		case OpInsert:
			c.Inserted++
		case OpUpdate:
			c.Updated++
		case OpDelete:
			c.Deleted++
		}
	}
	for _, ch := range s.ItemTypes {
		tally(ch.Op)
	}
	for _, ch := range s.Items {
		tally(ch.Op)
	}
	for _, ch := range s.Layers {
		tally(ch.Op)
	}
	if s.Metadata != nil {
		c.Updated++
	}
	return c
}

// MergeCounts reports how many rows a merge touched.
type MergeCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Skipped  int `json:"skipped"`
}

// MergeResult is returned by a successful merge.
type MergeResult struct {
	PullRequest PullRequest
	Applied     MergeCounts
}

// MergeReceipt is the audit record archived after a merge commits.
type MergeReceipt struct {
	PullRequestID   string       `json:"pull_request_id"`
	SourceProjectID string       `json:"source_project_id"`
	TargetProjectID string       `json:"target_project_id"`
	MergedBy        string       `json:"merged_by"`
	MergedAt        time.Time    `json:"merged_at"`
	Entries         []DiffEntry  `json:"entries"`
	Resolutions     []Resolution `json:"resolutions"`
	Applied         MergeCounts  `json:"applied"`
}
