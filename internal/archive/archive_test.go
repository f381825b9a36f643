package archive

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"asset-fork-merge/internal/entities"

	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey(entities.MergeReceipt{TargetProjectID: "master-1", PullRequestID: "pr-9"})
	require.Equal(t, "merges/master-1/pr-9.json", key)
}

func TestEncodeReceipt(t *testing.T) {
	receipt := entities.MergeReceipt{
		PullRequestID:   "pr-1",
		SourceProjectID: "fork-1",
		TargetProjectID: "master-1",
		MergedBy:        "alice",
		MergedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Entries: []entities.DiffEntry{
			{Category: entities.CategoryMapLayer, EntityID: "l1", ChangeType: entities.ChangeAdded},
		},
		Resolutions: []entities.Resolution{
			{Category: entities.CategoryHierarchyItem, EntityID: "i1", Action: entities.KeepTarget},
		},
		Applied: entities.MergeCounts{Inserted: 1, Skipped: 1},
	}

	body, err := Encode(receipt)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "pr-1", decoded["pull_request_id"])
	require.Equal(t, "alice", decoded["merged_by"])
	entries := decoded["entries"].([]any)
	require.Len(t, entries, 1)
	require.Equal(t, "map_layer", entries[0].(map[string]any)["entity_category"])
	applied := decoded["applied"].(map[string]any)
	require.EqualValues(t, 1, applied["inserted"])
}

func TestNopArchive(t *testing.T) {
	require.NoError(t, Nop{}.Archive(context.Background(), entities.MergeReceipt{}))
}
