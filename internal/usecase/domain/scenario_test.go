package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	ownerID  = "owner"
	editorID = "editor"
)

type recordingArchiver struct {
	mu       sync.Mutex
	receipts []entities.MergeReceipt
	err      error
}

func (a *recordingArchiver) Archive(_ context.Context, receipt entities.MergeReceipt) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.receipts = append(a.receipts, receipt)
	return a.err
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	repo     *memory.Memory
	uc       *Usecase
	archiver *recordingArchiver
	master   string
	fork     string
}

// newFixture seeds a master with one item type, a two-level tree and a map layer, then forks it.
func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	log := zap.NewNop().Sugar()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		repo:     memory.New(log, opts...),
		archiver: &recordingArchiver{},
	}
	f.uc = New(log, f.ctx, f.repo, time.Second, WithArchiver(f.archiver))

	master, err := f.uc.CreateProject(f.ctx, entities.Project{Title: "Water plant", Description: "North site", OwnerID: ownerID})
	require.NoError(t, err)
	f.master = master.ID

	_, err = f.repo.SaveItemType(f.ctx, entities.ItemType{
		Lineage: entities.Lineage{ID: "t-pump", ProjectID: f.master},
		Title:   "Pump",
		Color:   "#0055ff",
		Attributes: []entities.Attribute{
			{Lineage: entities.Lineage{ID: "a-flow"}, Name: "flow", DataType: "number", Position: 1},
		},
	})
	require.NoError(t, err)
	_, err = f.repo.SaveHierarchyItem(f.ctx, entities.HierarchyItem{
		Lineage: entities.Lineage{ID: "i-site", ProjectID: f.master},
		Title:   "Site",
	})
	require.NoError(t, err)
	_, err = f.repo.SaveHierarchyItem(f.ctx, entities.HierarchyItem{
		Lineage:    entities.Lineage{ID: "i-pump", ProjectID: f.master},
		ParentID:   strPtr("i-site"),
		ItemTypeID: strPtr("t-pump"),
		Title:      "Pump 1",
		Properties: map[string]any{"serial": "P-001"},
	})
	require.NoError(t, err)
	_, err = f.repo.SaveMapLayer(f.ctx, entities.MapLayer{
		Lineage:   entities.Lineage{ID: "l-roads", ProjectID: f.master},
		Title:     "Roads",
		LayerType: "line",
		Style:     map[string]any{"stroke": "#333"},
		Visible:   true,
	})
	require.NoError(t, err)

	fork, err := f.uc.CloneProject(f.ctx, f.master, "Survey fork", "", editorID)
	require.NoError(t, err)
	f.fork = fork.ID
	return f
}

func (f *fixture) graph(projectID string) *entities.ProjectGraph {
	f.t.Helper()
	g, err := f.repo.LoadGraph(f.ctx, projectID)
	require.NoError(f.t, err)
	return g
}

func (f *fixture) forkItem(originID string) entities.HierarchyItem {
	f.t.Helper()
	for _, item := range f.graph(f.fork).Items {
		if item.OriginID != nil && *item.OriginID == originID {
			return item
		}
	}
	f.t.Fatalf("fork has no copy of %s", originID)
	return entities.HierarchyItem{}
}

func (f *fixture) forkLayer(originID string) entities.MapLayer {
	f.t.Helper()
	for _, layer := range f.graph(f.fork).Layers {
		if layer.OriginID != nil && *layer.OriginID == originID {
			return layer
		}
	}
	f.t.Fatalf("fork has no copy of %s", originID)
	return entities.MapLayer{}
}

func (f *fixture) masterItem(id string) (entities.HierarchyItem, bool) {
	for _, item := range f.graph(f.master).Items {
		if item.ID == id {
			return item, true
		}
	}
	return entities.HierarchyItem{}, false
}

func (f *fixture) openPR() *entities.PullRequest {
	f.t.Helper()
	pr, err := f.uc.CreatePullRequest(f.ctx, entities.PullRequest{
		SourceProjectID: f.fork,
		TargetProjectID: f.master,
		CreatorID:       editorID,
		Title:           "Survey results",
	})
	require.NoError(f.t, err)
	return pr
}

func (f *fixture) renameForkItem(originID, title string) {
	f.t.Helper()
	item := f.forkItem(originID)
	item.Title = title
	_, err := f.repo.SaveHierarchyItem(f.ctx, item)
	require.NoError(f.t, err)
}

func (f *fixture) renameMasterItem(id, title string) {
	f.t.Helper()
	item, ok := f.masterItem(id)
	require.True(f.t, ok)
	item.Title = title
	_, err := f.repo.SaveHierarchyItem(f.ctx, item)
	require.NoError(f.t, err)
}

func TestCloneMirrorsMaster(t *testing.T) {
	f := newFixture(t)

	fork := f.graph(f.fork)
	require.Equal(t, f.master, *fork.Project.ParentProjectID)
	require.False(t, fork.Project.IsMaster)
	require.Equal(t, editorID, fork.Project.OwnerID)
	require.Len(t, fork.ItemTypes, 1)
	require.Len(t, fork.Items, 2)
	require.Len(t, fork.Layers, 1)

	site := f.forkItem("i-site")
	pump := f.forkItem("i-pump")
	require.NotEqual(t, "i-pump", pump.ID)
	require.Equal(t, site.ID, *pump.ParentID)
	require.Equal(t, fork.ItemTypes[0].ID, *pump.ItemTypeID)
	require.Equal(t, "t-pump", *fork.ItemTypes[0].OriginID)
	require.Equal(t, "a-flow", *fork.ItemTypes[0].Attributes[0].OriginID)
	require.Equal(t, "P-001", pump.Properties["serial"])

	diff, err := f.uc.Diff(f.ctx, f.openPR().ID)
	require.NoError(t, err)
	require.Empty(t, diff.Entries)
	require.Empty(t, diff.Conflicts)
}

func TestCloneRejectsForkAndMissingMaster(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CloneProject(f.ctx, f.fork, "Fork of fork", "", editorID)
	require.ErrorIs(t, err, entities.ErrInvalidState)
	require.ErrorIs(t, err, entities.ErrProjectNotFound)

	_, err = f.uc.CloneProject(f.ctx, "missing", "x", "", editorID)
	require.ErrorIs(t, err, entities.ErrProjectNotFound)

	_, err = f.uc.CloneProject(f.ctx, f.master, "  ", "", editorID)
	require.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestDiffModifiedIsStable(t *testing.T) {
	f := newFixture(t)
	f.renameForkItem("i-pump", "Pump 1 (rebuilt)")
	pr := f.openPR()

	first, err := f.uc.Diff(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)
	entry := first.Entries[0]
	require.Equal(t, entities.CategoryHierarchyItem, entry.Category)
	require.Equal(t, "i-pump", entry.EntityID)
	require.Equal(t, entities.ChangeModified, entry.ChangeType)
	require.Equal(t, "Pump 1", entry.OldData.(entities.HierarchyItem).Title)
	require.Equal(t, "Pump 1 (rebuilt)", entry.NewData.(entities.HierarchyItem).Title)

	second, err := f.uc.Diff(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDiffOrdersCategories(t *testing.T) {
	f := newFixture(t)
	layer := f.forkLayer("l-roads")
	layer.Visible = false
	_, err := f.repo.SaveMapLayer(f.ctx, layer)
	require.NoError(t, err)
	f.renameForkItem("i-site", "Main site")
	_, err = f.repo.UpdateProjectMetadata(f.ctx, f.fork, entities.ProjectMetadata{Title: "Survey fork", Description: "walked in May"})
	require.NoError(t, err)

	diff, err := f.uc.Diff(f.ctx, f.openPR().ID)
	require.NoError(t, err)
	require.Len(t, diff.Entries, 3)
	require.Equal(t, entities.CategoryProjectMetadata, diff.Entries[0].Category)
	require.Equal(t, f.master, diff.Entries[0].EntityID)
	require.Equal(t, entities.ProjectMetadata{Title: "Water plant", Description: "walked in May"}, diff.Entries[0].NewData)
	require.Equal(t, entities.CategoryHierarchyItem, diff.Entries[1].Category)
	require.Equal(t, entities.CategoryMapLayer, diff.Entries[2].Category)
}

func TestMergeAddedItemTranslatesReferences(t *testing.T) {
	f := newFixture(t)
	site := f.forkItem("i-site")
	pump := f.forkItem("i-pump")
	_, err := f.repo.SaveHierarchyItem(f.ctx, entities.HierarchyItem{
		Lineage:    entities.Lineage{ID: "fork-new-valve", ProjectID: f.fork},
		ParentID:   &site.ID,
		ItemTypeID: pump.ItemTypeID,
		Title:      "Valve 7",
	})
	require.NoError(t, err)
	pr := f.openPR()

	diff, err := f.uc.Diff(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, diff.Entries, 1)
	require.Equal(t, entities.ChangeAdded, diff.Entries[0].ChangeType)
	require.Equal(t, "fork-new-valve", diff.Entries[0].EntityID)

	res, err := f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
	require.NoError(t, err)
	require.Equal(t, entities.StatusMerged, res.PullRequest.Status)
	require.Equal(t, ownerID, *res.PullRequest.MergedBy)
	require.Equal(t, 1, res.Applied.Inserted)

	var valve *entities.HierarchyItem
	for _, item := range f.graph(f.master).Items {
		if item.Title == "Valve 7" {
			item := item
			valve = &item
		}
	}
	require.NotNil(t, valve)
	require.NotEqual(t, "fork-new-valve", valve.ID)
	require.Equal(t, "i-site", *valve.ParentID)
	require.Equal(t, "t-pump", *valve.ItemTypeID)
	require.Nil(t, valve.OriginID)

	// The fork is left untouched.
	require.Len(t, f.graph(f.fork).Items, 3)

	require.Len(t, f.archiver.receipts, 1)
	require.Equal(t, pr.ID, f.archiver.receipts[0].PullRequestID)
	require.Equal(t, ownerID, f.archiver.receipts[0].MergedBy)
}

func TestMergeAddedItemTypeWithAttributes(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.SaveItemType(f.ctx, entities.ItemType{
		Lineage: entities.Lineage{ID: "fork-type-valve", ProjectID: f.fork},
		Title:   "Valve",
		Attributes: []entities.Attribute{
			{Lineage: entities.Lineage{ID: "fork-attr-size"}, Name: "size", DataType: "number"},
		},
	})
	require.NoError(t, err)
	_, err = f.repo.SaveHierarchyItem(f.ctx, entities.HierarchyItem{
		Lineage:    entities.Lineage{ID: "fork-valve", ProjectID: f.fork},
		ItemTypeID: strPtr("fork-type-valve"),
		Title:      "Valve 1",
	})
	require.NoError(t, err)

	_, err = f.uc.MergePullRequest(f.ctx, f.openPR().ID, ownerID, nil)
	require.NoError(t, err)

	master := f.graph(f.master)
	require.Len(t, master.ItemTypes, 2)
	var valveType entities.ItemType
	for _, it := range master.ItemTypes {
		if it.Title == "Valve" {
			valveType = it
		}
	}
	require.NotEmpty(t, valveType.ID)
	require.Len(t, valveType.Attributes, 1)
	require.Equal(t, valveType.ID, valveType.Attributes[0].ItemTypeID)
	for _, item := range master.Items {
		if item.Title == "Valve 1" {
			require.Equal(t, valveType.ID, *item.ItemTypeID)
		}
	}
}

func TestMergeModifiedUpdatesMaster(t *testing.T) {
	f := newFixture(t)
	f.renameForkItem("i-pump", "Pump 1A")

	res, err := f.uc.MergePullRequest(f.ctx, f.openPR().ID, ownerID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied.Updated)

	pump, ok := f.masterItem("i-pump")
	require.True(t, ok)
	require.Equal(t, "Pump 1A", pump.Title)
	require.Equal(t, "i-site", *pump.ParentID)
}

func TestConcurrentModificationNeedsResolution(t *testing.T) {
	f := newFixture(t)
	f.renameForkItem("i-pump", "Fork title")
	f.renameMasterItem("i-pump", "Master title")
	pr := f.openPR()

	diff, err := f.uc.Diff(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Empty(t, diff.Entries)
	require.Len(t, diff.Conflicts, 1)
	require.Equal(t, entities.ConflictConcurrentModification, diff.Conflicts[0].ConflictType)

	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
	pending, ok := entities.AsConflictsPending(err)
	require.True(t, ok)
	require.Len(t, pending.Conflicts, 1)
	require.Equal(t, "i-pump", pending.Conflicts[0].EntityID)

	still, err := f.uc.PullRequest(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusOpen, still.Status)

	// A resolution for an unrelated entity does not count.
	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, []entities.Resolution{
		{Category: entities.CategoryMapLayer, EntityID: "i-pump", Action: entities.KeepSource},
	})
	_, ok = entities.AsConflictsPending(err)
	require.True(t, ok)

	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, []entities.Resolution{
		{Category: entities.CategoryHierarchyItem, EntityID: "i-pump", Action: entities.KeepSource},
	})
	require.NoError(t, err)
	pump, _ := f.masterItem("i-pump")
	require.Equal(t, "Fork title", pump.Title)
}

func TestKeepTargetLeavesMaster(t *testing.T) {
	f := newFixture(t)
	f.renameForkItem("i-pump", "Fork title")
	f.renameMasterItem("i-pump", "Master title")

	res, err := f.uc.MergePullRequest(f.ctx, f.openPR().ID, ownerID, []entities.Resolution{
		{Category: entities.CategoryHierarchyItem, EntityID: "i-pump", Action: entities.KeepTarget},
	})
	require.NoError(t, err)
	require.Equal(t, entities.StatusMerged, res.PullRequest.Status)
	require.Equal(t, 1, res.Applied.Skipped)

	pump, _ := f.masterItem("i-pump")
	require.Equal(t, "Master title", pump.Title)
}

func TestConvergentEditsAreNotReported(t *testing.T) {
	f := newFixture(t)
	f.renameForkItem("i-pump", "Same")
	f.renameMasterItem("i-pump", "Same")

	diff, err := f.uc.Diff(f.ctx, f.openPR().ID)
	require.NoError(t, err)
	require.Empty(t, diff.Entries)
	require.Empty(t, diff.Conflicts)
}

func TestDeletedVsModifiedKeepSourceRecreates(t *testing.T) {
	f := newFixture(t)
	layer := f.forkLayer("l-roads")
	layer.Title = "Roads (surveyed)"
	_, err := f.repo.SaveMapLayer(f.ctx, layer)
	require.NoError(t, err)
	require.NoError(t, f.repo.DeleteMapLayer(f.ctx, f.master, "l-roads"))
	pr := f.openPR()

	diff, err := f.uc.Diff(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, diff.Conflicts, 1)
	require.Equal(t, entities.ConflictDeletedVsModified, diff.Conflicts[0].ConflictType)
	require.Nil(t, diff.Conflicts[0].TargetData)

	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, []entities.Resolution{
		{Category: entities.CategoryMapLayer, EntityID: "l-roads", Action: entities.KeepSource},
	})
	require.NoError(t, err)

	master := f.graph(f.master)
	require.Len(t, master.Layers, 1)
	require.Equal(t, "l-roads", master.Layers[0].ID)
	require.Equal(t, "Roads (surveyed)", master.Layers[0].Title)
}

// deleteMasterPumpAfterForkEdit edits the fork's pump and removes the master's, leaving a leaf gone on one side only.
func (f *fixture) deleteMasterPumpAfterForkEdit() *entities.PullRequest {
	f.t.Helper()
	f.renameForkItem("i-pump", "Pump 1 (serviced)")
	require.NoError(f.t, f.repo.DeleteHierarchyItem(f.ctx, f.master, "i-pump"))
	return f.openPR()
}

func TestDeletedVsModifiedItemBlocksMerge(t *testing.T) {
	f := newFixture(t)
	pr := f.deleteMasterPumpAfterForkEdit()

	diff, err := f.uc.Diff(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Empty(t, diff.Entries)
	require.Len(t, diff.Conflicts, 1)
	conflict := diff.Conflicts[0]
	require.Equal(t, entities.CategoryHierarchyItem, conflict.Category)
	require.Equal(t, "i-pump", conflict.EntityID)
	require.Equal(t, entities.ConflictDeletedVsModified, conflict.ConflictType)
	require.Nil(t, conflict.TargetData)
	require.Equal(t, "Pump 1 (serviced)", conflict.SourceData.(entities.HierarchyItem).Title)

	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
	pending, ok := entities.AsConflictsPending(err)
	require.True(t, ok)
	require.Len(t, pending.Conflicts, 1)
	require.Equal(t, "i-pump", pending.Conflicts[0].EntityID)
	require.Equal(t, entities.ConflictDeletedVsModified, pending.Conflicts[0].ConflictType)

	still, err := f.uc.PullRequest(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusOpen, still.Status)
	_, ok = f.masterItem("i-pump")
	require.False(t, ok)
}

func TestDeletedVsModifiedItemKeepTarget(t *testing.T) {
	f := newFixture(t)
	pr := f.deleteMasterPumpAfterForkEdit()

	res, err := f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, []entities.Resolution{
		{Category: entities.CategoryHierarchyItem, EntityID: "i-pump", Action: entities.KeepTarget},
	})
	require.NoError(t, err)
	require.Equal(t, entities.StatusMerged, res.PullRequest.Status)
	require.Equal(t, entities.MergeCounts{Skipped: 1}, res.Applied)

	_, ok := f.masterItem("i-pump")
	require.False(t, ok)
	master := f.graph(f.master)
	require.Len(t, master.Items, 1)
	require.Equal(t, "i-site", master.Items[0].ID)
}

func TestDeletedVsModifiedItemKeepSource(t *testing.T) {
	f := newFixture(t)
	pr := f.deleteMasterPumpAfterForkEdit()

	res, err := f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, []entities.Resolution{
		{Category: entities.CategoryHierarchyItem, EntityID: "i-pump", Action: entities.KeepSource},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied.Inserted)

	pump, ok := f.masterItem("i-pump")
	require.True(t, ok)
	require.Equal(t, "Pump 1 (serviced)", pump.Title)
	require.Equal(t, "i-site", *pump.ParentID)
	require.Equal(t, "t-pump", *pump.ItemTypeID)
}

func TestDeletedEntryMergesAsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.DeleteMapLayer(f.ctx, f.master, "l-roads"))
	pr := f.openPR()

	diff, err := f.uc.Diff(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, diff.Entries, 1)
	require.Equal(t, entities.ChangeDeleted, diff.Entries[0].ChangeType)
	require.Equal(t, "Roads", diff.Entries[0].OldData.(entities.MapLayer).Title)

	res, err := f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied.Deleted)
	require.Empty(t, f.graph(f.master).Layers)
}

func TestMergeRejectsHierarchyCycle(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.SaveHierarchyItem(f.ctx, entities.HierarchyItem{
		Lineage: entities.Lineage{ID: "i-yard", ProjectID: f.master},
		Title:   "Yard",
	})
	require.NoError(t, err)
	fork, err := f.uc.CloneProject(f.ctx, f.master, "Second fork", "", editorID)
	require.NoError(t, err)
	f.fork = fork.ID

	// Fork moves the site under the yard while the master moves the yard under the site.
	yard := f.forkItem("i-yard")
	site := f.forkItem("i-site")
	site.ParentID = &yard.ID
	_, err = f.repo.SaveHierarchyItem(f.ctx, site)
	require.NoError(t, err)
	masterYard, _ := f.masterItem("i-yard")
	masterYard.ParentID = strPtr("i-site")
	_, err = f.repo.SaveHierarchyItem(f.ctx, masterYard)
	require.NoError(t, err)

	pr := f.openPR()
	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
	require.ErrorIs(t, err, entities.ErrInvalidArgument)

	still, err := f.uc.PullRequest(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusOpen, still.Status)
}

func TestMergeIsAtomic(t *testing.T) {
	boom := errors.New("write failed")
	f := newFixture(t, memory.WithApplyHook(func(step string) error {
		if step == "map_layer:update:l-roads" {
			return boom
		}
		return nil
	}))
	f.renameForkItem("i-pump", "Pump renamed")
	layer := f.forkLayer("l-roads")
	layer.Visible = false
	_, err := f.repo.SaveMapLayer(f.ctx, layer)
	require.NoError(t, err)
	pr := f.openPR()

	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
	require.ErrorIs(t, err, entities.ErrTransactionFailure)

	pump, _ := f.masterItem("i-pump")
	require.Equal(t, "Pump 1", pump.Title)
	still, err := f.uc.PullRequest(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusOpen, still.Status)
	require.Empty(t, f.archiver.receipts)
}

func TestArchiveFailureDoesNotFailMerge(t *testing.T) {
	f := newFixture(t)
	f.archiver.err = errors.New("bucket unavailable")
	f.renameForkItem("i-pump", "Pump renamed")

	res, err := f.uc.MergePullRequest(f.ctx, f.openPR().ID, ownerID, nil)
	require.NoError(t, err)
	require.Equal(t, entities.StatusMerged, res.PullRequest.Status)
}

func TestPullRequestLifecycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreatePullRequest(f.ctx, entities.PullRequest{
		SourceProjectID: f.master, TargetProjectID: f.fork, CreatorID: ownerID, Title: "backwards",
	})
	require.ErrorIs(t, err, entities.ErrInvalidState)

	pr := f.openPR()

	_, err = f.uc.ClosePullRequest(f.ctx, pr.ID, ownerID)
	require.ErrorIs(t, err, entities.ErrForbidden)
	_, err = f.uc.RejectPullRequest(f.ctx, pr.ID, editorID)
	require.ErrorIs(t, err, entities.ErrForbidden)
	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, editorID, nil)
	require.ErrorIs(t, err, entities.ErrForbidden)

	closed, err := f.uc.UpdatePullRequestStatus(f.ctx, pr.ID, editorID, entities.StatusClosed)
	require.NoError(t, err)
	require.Equal(t, entities.StatusClosed, closed.Status)

	// Terminal states answer InvalidState regardless of who asks.
	_, err = f.uc.RejectPullRequest(f.ctx, pr.ID, ownerID)
	require.ErrorIs(t, err, entities.ErrInvalidState)
	_, err = f.uc.ClosePullRequest(f.ctx, pr.ID, "stranger")
	require.ErrorIs(t, err, entities.ErrInvalidState)
	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
	require.ErrorIs(t, err, entities.ErrInvalidState)
	_, err = f.uc.AddComment(f.ctx, pr.ID, editorID, "too late")
	require.ErrorIs(t, err, entities.ErrInvalidState)

	_, err = f.uc.PullRequest(f.ctx, "missing")
	require.ErrorIs(t, err, entities.ErrPRNotFound)
}

func TestRejectByTargetOwner(t *testing.T) {
	f := newFixture(t)
	pr := f.openPR()

	rejected, err := f.uc.RejectPullRequest(f.ctx, pr.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusRejected, rejected.Status)

	open := entities.StatusOpen
	list, err := f.uc.ListPullRequests(f.ctx, entities.PullRequestFilter{ProjectID: f.master, Status: &open})
	require.NoError(t, err)
	require.Empty(t, list)

	all, err := f.uc.ListPullRequests(f.ctx, entities.PullRequestFilter{ProjectID: f.fork})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestCommentsAndReviews(t *testing.T) {
	f := newFixture(t)
	pr := f.openPR()

	_, err := f.uc.AddComment(f.ctx, pr.ID, editorID, "")
	require.ErrorIs(t, err, entities.ErrInvalidArgument)
	_, err = f.uc.AddReview(f.ctx, pr.ID, ownerID, "no", "veto")
	require.ErrorIs(t, err, entities.ErrInvalidArgument)

	_, err = f.uc.AddComment(f.ctx, pr.ID, editorID, "please look at the pumps")
	require.NoError(t, err)
	review, err := f.uc.AddReview(f.ctx, pr.ID, ownerID, "", entities.ReviewRequestChanges)
	require.NoError(t, err)
	require.True(t, review.IsReview)

	comments, err := f.uc.ListComments(f.ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "please look at the pumps", comments[0].Body)
	require.Equal(t, entities.ReviewRequestChanges, *comments[1].ReviewAction)

	// Reviews are advisory.
	_, err = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
	require.NoError(t, err)
}

func TestConcurrentMergesOfSamePR(t *testing.T) {
	f := newFixture(t)
	f.renameForkItem("i-pump", "Pump renamed")
	pr := f.openPR()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.MergePullRequest(f.ctx, pr.ID, ownerID, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, entities.ErrInvalidState)
	}
	require.Equal(t, 1, succeeded)
}
