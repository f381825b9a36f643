// Package handlers_fiber wires HTTP delivery components.
package handlers_fiber

import (
	"asset-fork-merge/internal/usecase"

	"go.uber.org/zap"
)

// HeaderUserID carries the authenticated actor. Authentication happens upstream.
const HeaderUserID = "X-User-ID"

// Handler implements oapi.ServerInterface using service layer interfaces.
type Handler struct {
	log *zap.SugaredLogger
	uc  usecase.InterfaceUsecase
}

// NewHandler constructs an HTTP server with service dependencies.
func NewHandler(log *zap.SugaredLogger, usecase usecase.InterfaceUsecase) *Handler {
	return &Handler{
		log: log.Named("http"),
		uc:  usecase,
	}
}
