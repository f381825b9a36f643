package handlers_fiber

import (
	"net/http"

	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/mapper"
	api "asset-fork-merge/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

type commentResponse struct {
	Comment api.Comment `json:"comment"`
}

// PostPullRequestsPrIdComments adds a discussion comment.
func (h *Handler) PostPullRequestsPrIdComments(c *fiber.Ctx, prId string) error {
	author, ok := actor(c)
	if !ok {
		return missingActor(c)
	}
	var body api.PostPullRequestsPrIdCommentsJSONRequestBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	comment, err := h.uc.AddComment(c.Context(), prId, author, body.Body)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(commentResponse{Comment: mapper.ToOAPIComment(*comment)})
}

// PostPullRequestsPrIdReviews adds an advisory review.
func (h *Handler) PostPullRequestsPrIdReviews(c *fiber.Ctx, prId string) error {
	author, ok := actor(c)
	if !ok {
		return missingActor(c)
	}
	var body api.PostPullRequestsPrIdReviewsJSONRequestBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	review, err := h.uc.AddReview(c.Context(), prId, author, body.Body, entities.ReviewAction(body.Action))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(commentResponse{Comment: mapper.ToOAPIComment(*review)})
}

// GetPullRequestsPrIdComments lists comments and reviews oldest first.
func (h *Handler) GetPullRequestsPrIdComments(c *fiber.Ctx, prId string) error {
	list, err := h.uc.ListComments(c.Context(), prId)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(struct {
		Comments []api.Comment `json:"comments"`
	}{Comments: mapper.ToOAPICommentList(list)})
}
