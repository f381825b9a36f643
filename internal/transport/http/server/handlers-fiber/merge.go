package handlers_fiber

import (
	"net/http"

	"asset-fork-merge/internal/mapper"
	api "asset-fork-merge/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

// GetPullRequestsPrIdDiff computes the PR diff on demand.
func (h *Handler) GetPullRequestsPrIdDiff(c *fiber.Ctx, prId string) error {
	diff, err := h.uc.Diff(c.Context(), prId)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(mapper.ToOAPIDiff(*diff))
}

// PostPullRequestsPrIdMerge merges the PR. An empty body means no resolutions.
func (h *Handler) PostPullRequestsPrIdMerge(c *fiber.Ctx, prId string) error {
	user, ok := actor(c)
	if !ok {
		return missingActor(c)
	}
	var body api.PostPullRequestsPrIdMergeJSONRequestBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	res, err := h.uc.MergePullRequest(c.Context(), prId, user, mapper.FromOAPIResolutions(body.Resolutions))
	if err != nil {
		h.log.Infow("merge refused", "pr_id", prId, "actor", user, "error", err)
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(mapper.ToOAPIMergeResult(*res))
}
