package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/lock"
	"asset-fork-merge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker serializes merges against one target project.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Archiver stores the receipt of a committed merge.
type Archiver interface {
	Archive(ctx context.Context, receipt entities.MergeReceipt) error
}

// Usecase struct implements all usecase interfaces.
type Usecase struct {
	ctx          context.Context
	log          *zap.SugaredLogger
	repo         repository.Repository
	timeout      time.Duration
	mergeTimeout time.Duration
	locker       Locker
	archiver     Archiver
	newID        func() string
	now          func() time.Time
}

// Option customises the usecase layer.
type Option func(*Usecase)

// WithLocker replaces the process-local merge lock.
func WithLocker(l Locker) Option {
	return func(u *Usecase) { u.locker = l }
}

// WithArchiver sets where merge receipts are written.
func WithArchiver(a Archiver) Option {
	return func(u *Usecase) { u.archiver = a }
}

// WithMergeTimeout bounds a whole merge, lock wait included.
func WithMergeTimeout(d time.Duration) Option {
	return func(u *Usecase) { u.mergeTimeout = d }
}

// New constructs a new usecase layer with its dependencies.
func New(
	log *zap.SugaredLogger,
	ctx context.Context,
	repo repository.Repository,
	timeout time.Duration,
	opts ...Option,
) *Usecase {
	u := &Usecase{
		ctx:          ctx,
		log:          log.Named("usecase"),
		repo:         repo,
		timeout:      timeout,
		mergeTimeout: timeout,
		locker:       lock.NewLocal(),
		archiver:     nopArchiver{},
		newID:        uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type nopArchiver struct{}

func (nopArchiver) Archive(context.Context, entities.MergeReceipt) error { return nil }

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeFailure passes domain errors through and classifies anything else as a failed store call.
func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		entities.ErrInvalidArgument,
		entities.ErrProjectNotFound,
		entities.ErrEntityNotFound,
		entities.ErrPRNotFound,
		entities.ErrForbidden,
		entities.ErrInvalidState,
		entities.ErrPRExists,
		entities.ErrTransactionFailure,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if _, ok := entities.AsConflictsPending(err); ok {
		return err
	}
	return fmt.Errorf("%w: %s: %w", entities.ErrTransactionFailure, op, err)
}
