package handlers_fiber

import (
	"net/http"

	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/mapper"
	api "asset-fork-merge/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

type prResponse struct {
	PR api.PullRequest `json:"pr"`
}

// PostPullRequests opens a PR from a fork into its master.
func (h *Handler) PostPullRequests(c *fiber.Ctx) error {
	creator, ok := actor(c)
	if !ok {
		return missingActor(c)
	}
	var body api.PostPullRequestsJSONRequestBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	pr, err := h.uc.CreatePullRequest(c.Context(), entities.PullRequest{
		SourceProjectID: body.SourceProjectId,
		TargetProjectID: body.TargetProjectId,
		CreatorID:       creator,
		Title:           body.Title,
		Description:     body.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(prResponse{PR: mapper.ToOAPIPull(*pr)})
}

// GetPullRequests lists PRs touching a project, newest first.
func (h *Handler) GetPullRequests(c *fiber.Ctx, params api.GetPullRequestsParams) error {
	var filter entities.PullRequestFilter
	if params.ProjectId != nil {
		filter.ProjectID = *params.ProjectId
	}
	if params.Status != nil {
		status := entities.PullRequestStatus(*params.Status)
		if !status.Valid() {
			return badRequest(c, "unknown status "+string(status))
		}
		filter.Status = &status
	}
	list, err := h.uc.ListPullRequests(c.Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(struct {
		PullRequests []api.PullRequest `json:"pull_requests"`
	}{PullRequests: mapper.ToOAPIPullList(list)})
}

// GetPullRequestsPrId returns one PR.
func (h *Handler) GetPullRequestsPrId(c *fiber.Ctx, prId string) error {
	pr, err := h.uc.PullRequest(c.Context(), prId)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(prResponse{PR: mapper.ToOAPIPull(*pr)})
}

// PatchPullRequestsPrId closes or rejects an open PR.
func (h *Handler) PatchPullRequestsPrId(c *fiber.Ctx, prId string) error {
	user, ok := actor(c)
	if !ok {
		return missingActor(c)
	}
	var body api.PatchPullRequestsPrIdJSONRequestBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	pr, err := h.uc.UpdatePullRequestStatus(c.Context(), prId, user, entities.PullRequestStatus(body.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(prResponse{PR: mapper.ToOAPIPull(*pr)})
}
