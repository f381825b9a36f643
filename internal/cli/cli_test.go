package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"asset-fork-merge/config"
	"asset-fork-merge/internal/app"
	"asset-fork-merge/internal/entities"
	api "asset-fork-merge/internal/oapi"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type cliFixture struct {
	t      *testing.T
	shared *app.App
	master string
	fork   string
	prID   string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig()

	shared, err := app.New(ctx, cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(shared.Close)

	master, err := shared.Usecase.CreateProject(ctx, entities.Project{Title: "Depot", OwnerID: "owner"})
	require.NoError(t, err)
	_, err = shared.Repo.SaveMapLayer(ctx, entities.MapLayer{
		Lineage: entities.Lineage{ID: "l-roads", ProjectID: master.ID},
		Title:   "Roads",
	})
	require.NoError(t, err)

	return &cliFixture{t: t, shared: shared, master: master.ID}
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{Backend: "memory"},
		HTTP:    config.HTTPConfig{RequestTimeout: time.Second},
		Merge:   config.MergeConfig{Timeout: time.Second},
		Logging: config.LoggingConfig{Level: "error"},
	}
}

func (f *cliFixture) run(args ...string) (string, error) {
	f.t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(Options{
		LoadConfig: func() (*config.Config, error) { return testConfig(), nil },
		Open: func(context.Context, *config.Config, *zap.SugaredLogger) (*app.App, error) {
			return &app.App{Repo: f.shared.Repo, Usecase: f.shared.Usecase}, nil
		},
		Out: &out,
		Err: &errOut,
	})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCloneDiffMerge(t *testing.T) {
	f := newCLIFixture(t)
	ctx := context.Background()

	out, err := f.run("clone", f.master, "--title", "Survey", "--as", "editor", "-o", "json")
	require.NoError(t, err)
	var fork api.Project
	require.NoError(t, json.Unmarshal([]byte(out), &fork))
	require.Equal(t, f.master, *fork.ParentProjectId)

	g, err := f.shared.Repo.LoadGraph(ctx, fork.ProjectId)
	require.NoError(t, err)
	layer := g.Layers[0]
	layer.Title = "Paved roads"
	_, err = f.shared.Repo.SaveMapLayer(ctx, layer)
	require.NoError(t, err)

	pr, err := f.shared.Usecase.CreatePullRequest(ctx, entities.PullRequest{
		SourceProjectID: fork.ProjectId,
		TargetProjectID: f.master,
		CreatorID:       "editor",
		Title:           "Rename roads",
	})
	require.NoError(t, err)

	out, err = f.run("diff", pr.ID, "-o", "yaml")
	require.NoError(t, err)
	var diff map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &diff))
	entries := diff["entries"].([]any)
	require.Len(t, entries, 1)
	require.Equal(t, "modified", entries[0].(map[string]any)["change_type"])
	require.Equal(t, "l-roads", entries[0].(map[string]any)["entity_id"])

	_, err = f.run("merge", pr.ID)
	require.ErrorContains(t, err, "--as is required")

	_, err = f.run("merge", pr.ID, "--as", "editor")
	require.ErrorIs(t, err, entities.ErrForbidden)

	out, err = f.run("merge", pr.ID, "--as", "owner", "-o", "json")
	require.NoError(t, err)
	var res api.MergeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, api.PullRequestStatusMerged, res.Pr.Status)
	require.Equal(t, 1, res.Applied.Updated)

	out, err = f.run("prs", "--project", f.master, "--status", "merged", "-o", "json")
	require.NoError(t, err)
	var list []api.PullRequest
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
}

func TestOutputDefaultsToJSONWhenPiped(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run("prs")
	require.NoError(t, err)
	require.JSONEq(t, "[]", out)

	_, err = f.run("prs", "-o", "xml")
	require.ErrorContains(t, err, "unknown output format")
	_, err = f.run("prs", "--status", "draft")
	require.ErrorContains(t, err, "unknown status")
}

func TestParseResolutions(t *testing.T) {
	got, err := parseResolutions([]string{"hierarchy_item/i-1=keep_source", "map_layer/l-2=keep_target"})
	require.NoError(t, err)
	require.Equal(t, []entities.Resolution{
		{Category: entities.CategoryHierarchyItem, EntityID: "i-1", Action: entities.KeepSource},
		{Category: entities.CategoryMapLayer, EntityID: "l-2", Action: entities.KeepTarget},
	}, got)

	for _, bad := range []string{"hierarchy_item/i-1", "i-1=keep_source", "hierarchy_item/=keep_source"} {
		_, err := parseResolutions([]string{bad})
		require.Error(t, err, bad)
	}
}
