package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/trendhome-fenster/api/internal/platform/firestore"
	"github.com/trendhome-fenster/api/internal/repositories"
)

const (
	countersCollection = "counters"
	// Order submission waits on the counter, so contention fails fast.
	counterTxTimeout = 5 * time.Second
)

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// CounterRepository hands out monotonic values from a transactional counter document.
type CounterRepository struct {
	provider *pfirestore.Provider
	counters *pfirestore.Collection[counterDocument]
}

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{
		provider: provider,
		counters: pfirestore.NewCollection[counterDocument](provider, countersCollection, nil, nil),
	}, nil
}

// Next atomically adds step (1 when zero) to the counter and returns the new value.
// A missing counter starts from zero.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" || step < 0 {
		return 0, fmt.Errorf("%w: id=%q step=%d", repositories.ErrInvalidCounter, counterID, step)
	}
	if step == 0 {
		step = 1
	}

	var next int64
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.counters.Doc(ctx, id)
		if err != nil {
			return err
		}
		var current int64
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			doc, err := r.counters.Decode(snap)
			if err != nil {
				return fmt.Errorf("decode counter %s: %w", id, err)
			}
			current = doc.Data.CurrentValue
		case !pfirestore.IsNotFound(err):
			return err
		}
		next = current + step
		return tx.Set(ref, counterDocument{CurrentValue: next, UpdatedAt: time.Now().UTC()})
	}, pfirestore.WithTxTimeout(counterTxTimeout))
	if err != nil {
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return next, nil
}
