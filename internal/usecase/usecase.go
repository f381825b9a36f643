package usecase

import (
	"context"
	"time"

	"asset-fork-merge/internal/repository"
	"asset-fork-merge/internal/usecase/domain"

	"go.uber.org/zap"
)

// InterfaceUsecase aggregates all usecase interfaces.
type InterfaceUsecase interface {
	ProjectUsecaseInterface
	PullRequestUsecaseInterface
	CommentUsecaseInterface
	DiffUsecaseInterface
	MergeUsecaseInterface
}

// New constructs a new usecase layer with its dependencies.
func New(log *zap.SugaredLogger, ctx context.Context, repo repository.Repository, timeout time.Duration, opts ...domain.Option) InterfaceUsecase {
	return domain.New(log, ctx, repo, timeout, opts...)
}
