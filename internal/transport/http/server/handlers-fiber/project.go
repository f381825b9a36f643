package handlers_fiber

import (
	"net/http"

	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/mapper"
	api "asset-fork-merge/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

// PostProjects registers a master project owned by the caller.
func (h *Handler) PostProjects(c *fiber.Ctx) error {
	owner, ok := actor(c)
	if !ok {
		return missingActor(c)
	}
	var body api.PostProjectsJSONRequestBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	project, err := h.uc.CreateProject(c.Context(), entities.Project{
		Title:       body.Title,
		Description: body.Description,
		OwnerID:     owner,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(struct {
		Project api.Project `json:"project"`
	}{Project: mapper.ToOAPIProject(*project)})
}

// GetProjectsProjectId returns a project with its entity graph.
func (h *Handler) GetProjectsProjectId(c *fiber.Ctx, projectId string) error {
	graph, err := h.uc.Project(c.Context(), projectId)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(mapper.ToOAPIGraph(*graph))
}

// PostProjectsProjectIdClone forks a master project for the caller.
func (h *Handler) PostProjectsProjectIdClone(c *fiber.Ctx, projectId string) error {
	owner, ok := actor(c)
	if !ok {
		return missingActor(c)
	}
	var body api.PostProjectsProjectIdCloneJSONRequestBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid body")
	}
	fork, err := h.uc.CloneProject(c.Context(), projectId, body.Title, body.Description, owner)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(struct {
		Project api.Project `json:"project"`
	}{Project: mapper.ToOAPIProject(*fork)})
}
