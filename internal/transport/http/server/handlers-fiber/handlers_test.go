package handlers_fiber

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asset-fork-merge/internal/entities"
	api "asset-fork-merge/internal/oapi"
	"asset-fork-merge/internal/repository/memory"
	"asset-fork-merge/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	t    *testing.T
	app  *fiber.App
	repo *memory.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop().Sugar()
	repo := memory.New(log)
	uc := usecase.New(log, context.Background(), repo, time.Second)

	app := fiber.New()
	api.RegisterHandlers(app, NewHandler(log, uc))
	return &testServer{t: t, app: app, repo: repo}
}

func (s *testServer) do(method, path, user string, body any, out any) int {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type projectEnvelope struct {
	Project api.Project `json:"project"`
}

type prEnvelope struct {
	PR api.PullRequest `json:"pr"`
}

// forkWithPR registers a master holding one item, forks it and opens a PR.
func (s *testServer) forkWithPR() (master, fork, prID string) {
	s.t.Helper()
	ctx := context.Background()

	var created projectEnvelope
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/projects", "owner", api.PostProjectsJSONBody{Title: "Water plant"}, &created))
	master = created.Project.ProjectId
	require.True(s.t, created.Project.IsMaster)

	_, err := s.repo.SaveHierarchyItem(ctx, entities.HierarchyItem{
		Lineage: entities.Lineage{ID: "i-pump", ProjectID: master},
		Title:   "Pump 1",
	})
	require.NoError(s.t, err)

	var cloned projectEnvelope
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/projects/"+master+"/clone", "editor", api.PostProjectsProjectIdCloneJSONBody{Title: "Draft"}, &cloned))
	fork = cloned.Project.ProjectId
	require.Equal(s.t, master, *cloned.Project.ParentProjectId)

	var pr prEnvelope
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/pull-requests", "editor", api.PostPullRequestsJSONBody{
		SourceProjectId: fork,
		TargetProjectId: master,
		Title:           "Add valve",
	}, &pr))
	require.Equal(s.t, api.PullRequestStatusOpen, pr.PR.Status)
	return master, fork, pr.PR.PullRequestId
}

func (s *testServer) forkItem(fork string) entities.HierarchyItem {
	s.t.Helper()
	g, err := s.repo.LoadGraph(context.Background(), fork)
	require.NoError(s.t, err)
	require.Len(s.t, g.Items, 1)
	return g.Items[0]
}

func TestProjectRoutes(t *testing.T) {
	s := newTestServer(t)
	master, fork, _ := s.forkWithPR()

	var graph api.ProjectGraph
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/projects/"+fork, "", nil, &graph))
	require.Len(t, graph.HierarchyItems, 1)
	require.Equal(t, "i-pump", *graph.HierarchyItems[0].OriginId)
	require.NotNil(t, graph.Project.CloneSnapshot)

	var errBody api.ErrorResponse
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/projects/missing", "", nil, &errBody))
	require.Equal(t, api.NOTFOUND, errBody.Error.Code)

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/projects/"+master+"/clone", "", api.PostProjectsProjectIdCloneJSONBody{Title: "x"}, &errBody))
	require.Equal(t, api.INVALIDARGUMENT, errBody.Error.Code)
}

func TestMergeFlowWithConflict(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	master, fork, prID := s.forkWithPR()

	item := s.forkItem(fork)
	item.Title = "Pump 1 (fork)"
	_, err := s.repo.SaveHierarchyItem(ctx, item)
	require.NoError(t, err)
	_, err = s.repo.SaveHierarchyItem(ctx, entities.HierarchyItem{
		Lineage: entities.Lineage{ID: "i-pump", ProjectID: master},
		Title:   "Pump 1 (master)",
	})
	require.NoError(t, err)
	_, err = s.repo.SaveMapLayer(ctx, entities.MapLayer{
		Lineage: entities.Lineage{ID: "l-valves", ProjectID: fork},
		Title:   "Valves",
	})
	require.NoError(t, err)

	var diff api.Diff
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/pull-requests/"+prID+"/diff", "", nil, &diff))
	require.Len(t, diff.Entries, 1)
	require.Equal(t, "map_layer", diff.Entries[0].EntityCategory)
	require.Equal(t, "added", diff.Entries[0].ChangeType)
	require.Len(t, diff.Conflicts, 1)
	require.Equal(t, "concurrent_modification", diff.Conflicts[0].ConflictType)

	var errBody api.ErrorResponse
	require.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/pull-requests/"+prID+"/merge", "editor", nil, &errBody))
	require.Equal(t, api.FORBIDDEN, errBody.Error.Code)

	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/pull-requests/"+prID+"/merge", "owner", nil, &errBody))
	require.Equal(t, api.CONFLICTSPENDING, errBody.Error.Code)
	require.Len(t, errBody.Conflicts, 1)
	require.Equal(t, "i-pump", errBody.Conflicts[0].EntityId)

	var merged api.MergeResult
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/pull-requests/"+prID+"/merge", "owner", api.PostPullRequestsPrIdMergeJSONBody{
		Resolutions: []api.Resolution{{EntityCategory: "hierarchy_item", EntityId: "i-pump", Action: "keep_source"}},
	}, &merged))
	require.Equal(t, api.PullRequestStatusMerged, merged.Pr.Status)
	require.Equal(t, "owner", *merged.Pr.MergedBy)
	require.Equal(t, 1, merged.Applied.Inserted)
	require.Equal(t, 1, merged.Applied.Updated)

	var graph api.ProjectGraph
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/projects/"+master, "", nil, &graph))
	require.Equal(t, "Pump 1 (fork)", graph.HierarchyItems[0].Title)
	require.Len(t, graph.MapLayers, 1)

	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/pull-requests/"+prID+"/merge", "owner", nil, &errBody))
	require.Equal(t, api.INVALIDSTATE, errBody.Error.Code)
}

func TestPullRequestRoutes(t *testing.T) {
	s := newTestServer(t)
	master, _, prID := s.forkWithPR()

	var errBody api.ErrorResponse
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/pull-requests/"+prID+"/comments", "", api.PostPullRequestsPrIdCommentsJSONBody{Body: "hi"}, &errBody))

	var comment struct {
		Comment api.Comment `json:"comment"`
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/pull-requests/"+prID+"/comments", "owner", api.PostPullRequestsPrIdCommentsJSONBody{Body: "looks good"}, &comment))
	require.False(t, comment.Comment.IsReview)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/pull-requests/"+prID+"/reviews", "owner", api.PostPullRequestsPrIdReviewsJSONBody{Action: "approve"}, &comment))
	require.True(t, comment.Comment.IsReview)
	require.Equal(t, "approve", *comment.Comment.ReviewAction)
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/pull-requests/"+prID+"/reviews", "owner", api.PostPullRequestsPrIdReviewsJSONBody{Action: "lgtm"}, &errBody))

	var comments struct {
		Comments []api.Comment `json:"comments"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/pull-requests/"+prID+"/comments", "", nil, &comments))
	require.Len(t, comments.Comments, 2)

	var list struct {
		PullRequests []api.PullRequest `json:"pull_requests"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/pull-requests?project_id="+master+"&status=open", "", nil, &list))
	require.Len(t, list.PullRequests, 1)
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/pull-requests?status=draft", "", nil, &errBody))

	require.Equal(t, http.StatusForbidden, s.do(http.MethodPatch, "/pull-requests/"+prID, "editor", api.PatchPullRequestsPrIdJSONBody{Status: api.PullRequestStatusRejected}, &errBody))
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/pull-requests/"+prID, "owner", api.PatchPullRequestsPrIdJSONBody{Status: api.PullRequestStatusMerged}, &errBody))

	var pr prEnvelope
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/pull-requests/"+prID, "owner", api.PatchPullRequestsPrIdJSONBody{Status: api.PullRequestStatusRejected}, &pr))
	require.Equal(t, api.PullRequestStatusRejected, pr.PR.Status)

	require.Equal(t, http.StatusConflict, s.do(http.MethodPatch, "/pull-requests/"+prID, "editor", api.PatchPullRequestsPrIdJSONBody{Status: api.PullRequestStatusClosed}, &errBody))
	require.Equal(t, api.INVALIDSTATE, errBody.Error.Code)
	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/pull-requests/"+prID+"/comments", "owner", api.PostPullRequestsPrIdCommentsJSONBody{Body: "late"}, &errBody))

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/pull-requests/"+prID, "", nil, &pr))
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/pull-requests/missing", "", nil, &errBody))
}
