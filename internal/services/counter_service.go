package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trendhome-fenster/api/internal/repositories"
)

const orderNumberPrefix = "WIN"

// ErrCounterInvalidInput indicates the caller supplied invalid counter parameters.
var ErrCounterInvalidInput = errors.New("counter: invalid input")

// CounterServiceDeps bundles collaborators required to construct a counter service instance.
type CounterServiceDeps struct {
	Repository repositories.CounterRepository
	Clock      func() time.Time
}

type counterService struct {
	repo  repositories.CounterRepository
	clock func() time.Time
}

// NewCounterService constructs the order number generator on top of the counter repository.
func NewCounterService(deps CounterServiceDeps) (CounterService, error) {
	if deps.Repository == nil {
		return nil, errors.New("counter service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &counterService{
		repo:  deps.Repository,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// NextOrderNumber returns WIN-<yyyymmdd>-<seq>, where seq restarts every UTC day.
// Uniqueness across processes comes from the transactional counter.
func (s *counterService) NextOrderNumber(ctx context.Context) (string, error) {
	day := s.clock().Format("20060102")
	seq, err := s.repo.Next(ctx, "orders-"+day, 1)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidCounter) {
			return "", fmt.Errorf("%w: %v", ErrCounterInvalidInput, err)
		}
		return "", fmt.Errorf("counter: next order number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", orderNumberPrefix, day, seq), nil
}
