package dbbadger

import (
	"context"
	"fmt"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type depositLotRepositoryImpl struct {
	store *badgerhold.Store
}

// NewDepositLotRepositoryImpl initialize a badger implementation of the
// domain.DepositLotRepository
func NewDepositLotRepositoryImpl(
	store *badgerhold.Store,
) domain.DepositLotRepository {
	return depositLotRepositoryImpl{store}
}

func (r depositLotRepositoryImpl) AddLot(
	ctx context.Context, lot *domain.DepositLot,
) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxInsert(tx, lot.ID, *lot)
	} else {
		err = r.store.Insert(lot.ID, *lot)
	}
	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return &domain.LotError{
				Kind: domain.ErrDuplicateLot, LotID: lot.ID,
			}
		}
		return err
	}
	return nil
}

func (r depositLotRepositoryImpl) GetLot(
	ctx context.Context, id string,
) (*domain.DepositLot, error) {
	return r.getLot(ctx, id)
}

func (r depositLotRepositoryImpl) ListLotsForEscrow(
	ctx context.Context, escrowID string,
	filter domain.LotFilter, page *domain.Page,
) ([]*domain.DepositLot, error) {
	query := badgerhold.Where("EscrowID").Eq(escrowID)
	if filter.State != domain.LotStateUnspecified {
		query = query.And("State").Eq(filter.State)
	}
	query = query.SortBy("Index").Reverse()

	lots, err := r.findLots(ctx, query)
	if err != nil {
		return nil, err
	}

	filtered := make([]*domain.DepositLot, 0, len(lots))
	for _, lot := range lots {
		if filter.Match(lot) {
			filtered = append(filtered, lot)
		}
	}
	return paginate(filtered, page), nil
}

func (r depositLotRepositoryImpl) ListPendingLotsForVault(
	ctx context.Context, escrowID string, asset domain.Asset,
) ([]*domain.DepositLot, error) {
	query := badgerhold.Where("EscrowID").Eq(escrowID).
		And("Asset").Eq(asset).
		And("State").Eq(domain.LotStatePendingWithdrawal).
		SortBy("Index")

	return r.findLots(ctx, query)
}

func (r depositLotRepositoryImpl) UpdateLot(
	ctx context.Context, id string,
	updateFn func(l *domain.DepositLot) (*domain.DepositLot, error),
) error {
	lot, err := r.getLot(ctx, id)
	if err != nil {
		return err
	}

	updatedLot, err := updateFn(lot)
	if err != nil {
		return err
	}

	if tx := txFromContext(ctx); tx != nil {
		return r.store.TxUpdate(tx, id, *updatedLot)
	}
	return r.store.Update(id, *updatedLot)
}

func (r depositLotRepositoryImpl) getLot(
	ctx context.Context, id string,
) (*domain.DepositLot, error) {
	var lot domain.DepositLot
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, id, &lot)
	} else {
		err = r.store.Get(id, &lot)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrLotNotFound, id)
		}
		return nil, err
	}
	return &lot, nil
}

func (r depositLotRepositoryImpl) findLots(
	ctx context.Context, query *badgerhold.Query,
) ([]*domain.DepositLot, error) {
	var lots []domain.DepositLot
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &lots, query)
	} else {
		err = r.store.Find(&lots, query)
	}
	if err != nil {
		return nil, err
	}

	list := make([]*domain.DepositLot, 0, len(lots))
	for i := range lots {
		list = append(list, &lots[i])
	}
	return list, nil
}

func paginate(lots []*domain.DepositLot, page *domain.Page) []*domain.DepositLot {
	if page == nil {
		return lots
	}
	from := page.Offset()
	if from >= len(lots) {
		return []*domain.DepositLot{}
	}
	to := from + page.Size
	if to > len(lots) {
		to = len(lots)
	}
	return lots[from:to]
}
