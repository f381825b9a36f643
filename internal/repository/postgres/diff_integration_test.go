package postgres_test

import (
	"context"
	"testing"
	"time"

	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/repository/postgres"
	"asset-fork-merge/internal/usecase/domain"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func renameItem(t *testing.T, repo *postgres.Postgres, projectID string, match func(entities.HierarchyItem) bool, title string) {
	t.Helper()
	ctx := context.Background()
	g, err := repo.LoadGraph(ctx, projectID)
	require.NoError(t, err)
	for _, item := range g.Items {
		if match(item) {
			item.Title = title
			_, err = repo.SaveHierarchyItem(ctx, item)
			require.NoError(t, err)
			return
		}
	}
	t.Fatalf("no matching item in %s", projectID)
}

func TestCloneDiffMergeIntegration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.StartRepo(t)
	postgres.SeedMaster(t, repo)
	uc := domain.New(zap.NewNop().Sugar(), ctx, repo, 10*time.Second)

	fork, err := uc.CloneProject(ctx, "master", "Survey fork", "", "editor")
	require.NoError(t, err)
	pr, err := uc.CreatePullRequest(ctx, entities.PullRequest{
		SourceProjectID: fork.ID,
		TargetProjectID: "master",
		CreatorID:       "editor",
		Title:           "Survey results",
	})
	require.NoError(t, err)

	fresh, err := uc.Diff(ctx, pr.ID)
	require.NoError(t, err)
	require.Empty(t, fresh.Entries)
	require.Empty(t, fresh.Conflicts)

	renameItem(t, repo, fork.ID, func(it entities.HierarchyItem) bool {
		return it.OriginID != nil && *it.OriginID == "i-pump"
	}, "Pump 1A")

	diff, err := uc.Diff(ctx, pr.ID)
	require.NoError(t, err)
	require.Empty(t, diff.Conflicts)
	require.Len(t, diff.Entries, 1)
	require.Equal(t, entities.CategoryHierarchyItem, diff.Entries[0].Category)
	require.Equal(t, "i-pump", diff.Entries[0].EntityID)
	require.Equal(t, entities.ChangeModified, diff.Entries[0].ChangeType)

	// Master-only edits and deletions of untouched rows are not conflicts.
	renameItem(t, repo, "master", func(it entities.HierarchyItem) bool { return it.ID == "i-site" }, "North site")
	require.NoError(t, repo.DeleteMapLayer(ctx, "master", "l-roads"))

	diff, err = uc.Diff(ctx, pr.ID)
	require.NoError(t, err)
	require.Empty(t, diff.Conflicts)
	require.Len(t, diff.Entries, 2)
	require.Equal(t, entities.ChangeModified, diff.Entries[0].ChangeType)
	require.Equal(t, entities.CategoryMapLayer, diff.Entries[1].Category)
	require.Equal(t, entities.ChangeDeleted, diff.Entries[1].ChangeType)

	res, err := uc.MergePullRequest(ctx, pr.ID, "owner", nil)
	require.NoError(t, err)
	require.Equal(t, entities.StatusMerged, res.PullRequest.Status)
	require.Equal(t, 1, res.Applied.Updated)
	require.Equal(t, 1, res.Applied.Deleted)

	master, err := repo.LoadGraph(ctx, "master")
	require.NoError(t, err)
	require.Empty(t, master.Layers)
	titles := map[string]string{}
	for _, item := range master.Items {
		titles[item.ID] = item.Title
	}
	require.Equal(t, map[string]string{"i-site": "North site", "i-pump": "Pump 1A"}, titles)
}
