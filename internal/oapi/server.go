package oapi

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Register a master project
	// (POST /projects)
	PostProjects(c *fiber.Ctx) error
	// Project with its entity graph
	// (GET /projects/{projectId})
	GetProjectsProjectId(c *fiber.Ctx, projectId string) error
	// Clone a master project into a fork
	// (POST /projects/{projectId}/clone)
	PostProjectsProjectIdClone(c *fiber.Ctx, projectId string) error
	// List pull requests
	// (GET /pull-requests)
	GetPullRequests(c *fiber.Ctx, params GetPullRequestsParams) error
	// Open a pull request
	// (POST /pull-requests)
	PostPullRequests(c *fiber.Ctx) error
	// Get a pull request
	// (GET /pull-requests/{prId})
	GetPullRequestsPrId(c *fiber.Ctx, prId string) error
	// Close or reject a pull request
	// (PATCH /pull-requests/{prId})
	PatchPullRequestsPrId(c *fiber.Ctx, prId string) error
	// List comments and reviews
	// (GET /pull-requests/{prId}/comments)
	GetPullRequestsPrIdComments(c *fiber.Ctx, prId string) error
	// Add a comment
	// (POST /pull-requests/{prId}/comments)
	PostPullRequestsPrIdComments(c *fiber.Ctx, prId string) error
	// Compute the diff
	// (GET /pull-requests/{prId}/diff)
	GetPullRequestsPrIdDiff(c *fiber.Ctx, prId string) error
	// Merge with conflict resolutions
	// (POST /pull-requests/{prId}/merge)
	PostPullRequestsPrIdMerge(c *fiber.Ctx, prId string) error
	// Add a review
	// (POST /pull-requests/{prId}/reviews)
	PostPullRequestsPrIdReviews(c *fiber.Ctx, prId string) error
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// MiddlewareFunc is a middleware applied to every route.
type MiddlewareFunc fiber.Handler

func pathParam(c *fiber.Ctx, name string) (string, error) {
	v := c.Params(name)
	if v == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s", name))
	}
	return v, nil
}

// PostProjects operation middleware
func (siw *ServerInterfaceWrapper) PostProjects(c *fiber.Ctx) error {
	return siw.Handler.PostProjects(c)
}

// GetProjectsProjectId operation middleware
func (siw *ServerInterfaceWrapper) GetProjectsProjectId(c *fiber.Ctx) error {
	projectId, err := pathParam(c, "projectId")
	if err != nil {
		return err
	}
	return siw.Handler.GetProjectsProjectId(c, projectId)
}

// PostProjectsProjectIdClone operation middleware
func (siw *ServerInterfaceWrapper) PostProjectsProjectIdClone(c *fiber.Ctx) error {
	projectId, err := pathParam(c, "projectId")
	if err != nil {
		return err
	}
	return siw.Handler.PostProjectsProjectIdClone(c, projectId)
}

// GetPullRequests operation middleware
func (siw *ServerInterfaceWrapper) GetPullRequests(c *fiber.Ctx) error {
	var params GetPullRequestsParams
	if v := c.Query("project_id"); v != "" {
		params.ProjectId = &v
	}
	if v := c.Query("status"); v != "" {
		status := PullRequestStatus(v)
		params.Status = &status
	}
	return siw.Handler.GetPullRequests(c, params)
}

// PostPullRequests operation middleware
func (siw *ServerInterfaceWrapper) PostPullRequests(c *fiber.Ctx) error {
	return siw.Handler.PostPullRequests(c)
}

// GetPullRequestsPrId operation middleware
func (siw *ServerInterfaceWrapper) GetPullRequestsPrId(c *fiber.Ctx) error {
	prId, err := pathParam(c, "prId")
	if err != nil {
		return err
	}
	return siw.Handler.GetPullRequestsPrId(c, prId)
}

// PatchPullRequestsPrId operation middleware
func (siw *ServerInterfaceWrapper) PatchPullRequestsPrId(c *fiber.Ctx) error {
	prId, err := pathParam(c, "prId")
	if err != nil {
		return err
	}
	return siw.Handler.PatchPullRequestsPrId(c, prId)
}

// GetPullRequestsPrIdComments operation middleware
func (siw *ServerInterfaceWrapper) GetPullRequestsPrIdComments(c *fiber.Ctx) error {
	prId, err := pathParam(c, "prId")
	if err != nil {
		return err
	}
	return siw.Handler.GetPullRequestsPrIdComments(c, prId)
}

// PostPullRequestsPrIdComments operation middleware
func (siw *ServerInterfaceWrapper) PostPullRequestsPrIdComments(c *fiber.Ctx) error {
	prId, err := pathParam(c, "prId")
	if err != nil {
		return err
	}
	return siw.Handler.PostPullRequestsPrIdComments(c, prId)
}

// GetPullRequestsPrIdDiff operation middleware
func (siw *ServerInterfaceWrapper) GetPullRequestsPrIdDiff(c *fiber.Ctx) error {
	prId, err := pathParam(c, "prId")
	if err != nil {
		return err
	}
	return siw.Handler.GetPullRequestsPrIdDiff(c, prId)
}

// PostPullRequestsPrIdMerge operation middleware
func (siw *ServerInterfaceWrapper) PostPullRequestsPrIdMerge(c *fiber.Ctx) error {
	prId, err := pathParam(c, "prId")
	if err != nil {
		return err
	}
	return siw.Handler.PostPullRequestsPrIdMerge(c, prId)
}

// PostPullRequestsPrIdReviews operation middleware
func (siw *ServerInterfaceWrapper) PostPullRequestsPrIdReviews(c *fiber.Ctx) error {
	prId, err := pathParam(c, "prId")
	if err != nil {
		return err
	}
	return siw.Handler.PostPullRequestsPrIdReviews(c, prId)
}

// FiberServerOptions provides options for the Fiber server.
type FiberServerOptions struct {
	BaseURL     string
	Middlewares []MiddlewareFunc
}

// RegisterHandlers mounts every route on router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, FiberServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router fiber.Router, si ServerInterface, options FiberServerOptions) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	for _, m := range options.Middlewares {
		router.Use(fiber.Handler(m))
	}

	router.Post(options.BaseURL+"/projects", wrapper.PostProjects)
	router.Get(options.BaseURL+"/projects/:projectId", wrapper.GetProjectsProjectId)
	router.Post(options.BaseURL+"/projects/:projectId/clone", wrapper.PostProjectsProjectIdClone)
	router.Get(options.BaseURL+"/pull-requests", wrapper.GetPullRequests)
	router.Post(options.BaseURL+"/pull-requests", wrapper.PostPullRequests)
	router.Get(options.BaseURL+"/pull-requests/:prId", wrapper.GetPullRequestsPrId)
	router.Patch(options.BaseURL+"/pull-requests/:prId", wrapper.PatchPullRequestsPrId)
	router.Get(options.BaseURL+"/pull-requests/:prId/comments", wrapper.GetPullRequestsPrIdComments)
	router.Post(options.BaseURL+"/pull-requests/:prId/comments", wrapper.PostPullRequestsPrIdComments)
	router.Get(options.BaseURL+"/pull-requests/:prId/diff", wrapper.GetPullRequestsPrIdDiff)
	router.Post(options.BaseURL+"/pull-requests/:prId/merge", wrapper.PostPullRequestsPrIdMerge)
	router.Post(options.BaseURL+"/pull-requests/:prId/reviews", wrapper.PostPullRequestsPrIdReviews)
}
