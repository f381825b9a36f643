package handlers_fiber

import (
	"errors"
	"net/http"

	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/mapper"
	api "asset-fork-merge/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

func writeError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	code := api.TRANSACTIONFAILURE
	msg := "internal error"

	if pending, ok := entities.AsConflictsPending(err); ok {
		resp := errorResponse(api.CONFLICTSPENDING, err.Error())
		resp.Conflicts = mapper.ToOAPIConflicts(pending.Conflicts)
		return c.Status(http.StatusConflict).JSON(resp)
	}

	switch {
	case errors.Is(err, entities.ErrInvalidArgument):
		status = http.StatusBadRequest
		code = api.INVALIDARGUMENT
		msg = err.Error()
	case errors.Is(err, entities.ErrProjectNotFound), errors.Is(err, entities.ErrPRNotFound), errors.Is(err, entities.ErrEntityNotFound):
		status = http.StatusNotFound
		code = api.NOTFOUND
		msg = err.Error()
	case errors.Is(err, entities.ErrForbidden):
		status = http.StatusForbidden
		code = api.FORBIDDEN
		msg = err.Error()
	case errors.Is(err, entities.ErrInvalidState):
		status = http.StatusConflict
		code = api.INVALIDSTATE
		msg = err.Error()
	case errors.Is(err, entities.ErrPRExists):
		status = http.StatusConflict
		code = api.PREXISTS
		msg = "PR id already exists"
	case errors.Is(err, entities.ErrTransactionFailure):
		msg = err.Error()
	}

	return c.Status(status).JSON(errorResponse(code, msg))
}

func errorResponse(code api.ErrorResponseErrorCode, msg string) api.ErrorResponse {
	var resp api.ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = msg
	return resp
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(errorResponse(api.INVALIDARGUMENT, msg))
}

// actor returns the caller id; an empty header is rejected before the usecase runs.
func actor(c *fiber.Ctx) (string, bool) {
	id := c.Get(HeaderUserID)
	return id, id != ""
}

func missingActor(c *fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(errorResponse(api.INVALIDARGUMENT, HeaderUserID+" header is required"))
}
