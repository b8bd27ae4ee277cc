package dbbadger

import (
	"context"
	"fmt"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type escrowRepositoryImpl struct {
	store *badgerhold.Store
}

// NewEscrowRepositoryImpl initialize a badger implementation of the
// domain.EscrowRepository
func NewEscrowRepositoryImpl(store *badgerhold.Store) domain.EscrowRepository {
	return escrowRepositoryImpl{store}
}

func (r escrowRepositoryImpl) AddEscrow(
	ctx context.Context, escrow *domain.Escrow,
) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxInsert(tx, escrow.ID, *escrow)
	} else {
		err = r.store.Insert(escrow.ID, *escrow)
	}
	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("%w: %s", domain.ErrEscrowAlreadyExists, escrow.ID)
		}
		return err
	}
	return nil
}

func (r escrowRepositoryImpl) GetEscrow(
	ctx context.Context, id string,
) (*domain.Escrow, error) {
	return r.getEscrow(ctx, id)
}

func (r escrowRepositoryImpl) ListEscrowsForParty(
	ctx context.Context, party string,
) ([]*domain.Escrow, error) {
	query := badgerhold.Where("Sender").Eq(party).
		Or(badgerhold.Where("Receiver").Eq(party)).
		SortBy("CreatedAt")

	var escrows []domain.Escrow
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &escrows, query)
	} else {
		err = r.store.Find(&escrows, query)
	}
	if err != nil {
		return nil, err
	}

	list := make([]*domain.Escrow, 0, len(escrows))
	for i := range escrows {
		list = append(list, &escrows[i])
	}
	return list, nil
}

func (r escrowRepositoryImpl) UpdateEscrow(
	ctx context.Context, id string,
	updateFn func(e *domain.Escrow) (*domain.Escrow, error),
) error {
	escrow, err := r.getEscrow(ctx, id)
	if err != nil {
		return err
	}

	updatedEscrow, err := updateFn(escrow)
	if err != nil {
		return err
	}

	if tx := txFromContext(ctx); tx != nil {
		return r.store.TxUpdate(tx, id, *updatedEscrow)
	}
	return r.store.Update(id, *updatedEscrow)
}

func (r escrowRepositoryImpl) getEscrow(
	ctx context.Context, id string,
) (*domain.Escrow, error) {
	var escrow domain.Escrow
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, id, &escrow)
	} else {
		err = r.store.Get(id, &escrow)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrEscrowNotFound
		}
		return nil, err
	}
	return &escrow, nil
}
