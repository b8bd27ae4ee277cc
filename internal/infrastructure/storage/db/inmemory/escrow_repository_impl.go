package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/senda-network/senda-daemon/internal/core/domain"
)

// EscrowRepositoryImpl represents an in memory storage
type EscrowRepositoryImpl struct {
	store *store
}

func NewEscrowRepositoryImpl(s *store) *EscrowRepositoryImpl {
	return &EscrowRepositoryImpl{s}
}

// AddEscrow inserts the escrow if none exists with the same id.
func (r *EscrowRepositoryImpl) AddEscrow(
	ctx context.Context, escrow *domain.Escrow,
) error {
	return r.store.exclusive(ctx, func() error {
		r.store.lock.Lock()
		defer r.store.lock.Unlock()

		if _, ok := r.store.escrows[escrow.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrEscrowAlreadyExists, escrow.ID)
		}
		r.store.escrows[escrow.ID] = cloneEscrow(*escrow)
		return nil
	})
}

func (r *EscrowRepositoryImpl) GetEscrow(
	ctx context.Context, id string,
) (*domain.Escrow, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getEscrow(id)
}

func (r *EscrowRepositoryImpl) ListEscrowsForParty(
	ctx context.Context, party string,
) ([]*domain.Escrow, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	list := make([]*domain.Escrow, 0)
	for _, e := range r.store.escrows {
		if e.Sender == party || e.Receiver == party {
			escrow := cloneEscrow(e)
			list = append(list, &escrow)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt == list[j].CreatedAt {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt < list[j].CreatedAt
	})
	return list, nil
}

func (r *EscrowRepositoryImpl) UpdateEscrow(
	ctx context.Context, id string,
	updateFn func(e *domain.Escrow) (*domain.Escrow, error),
) error {
	return r.store.exclusive(ctx, func() error {
		r.store.lock.RLock()
		escrow, err := r.getEscrow(id)
		r.store.lock.RUnlock()
		if err != nil {
			return err
		}

		updatedEscrow, err := updateFn(escrow)
		if err != nil {
			return err
		}

		r.store.lock.Lock()
		defer r.store.lock.Unlock()
		r.store.escrows[id] = cloneEscrow(*updatedEscrow)
		return nil
	})
}

func (r *EscrowRepositoryImpl) getEscrow(id string) (*domain.Escrow, error) {
	e, ok := r.store.escrows[id]
	if !ok {
		return nil, domain.ErrEscrowNotFound
	}
	escrow := cloneEscrow(e)
	return &escrow, nil
}
