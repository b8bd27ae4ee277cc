package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/senda-network/senda-daemon/internal/core/domain"
)

// DepositLotRepositoryImpl represents an in memory storage
type DepositLotRepositoryImpl struct {
	store *store
}

func NewDepositLotRepositoryImpl(s *store) *DepositLotRepositoryImpl {
	return &DepositLotRepositoryImpl{s}
}

func (r *DepositLotRepositoryImpl) AddLot(
	ctx context.Context, lot *domain.DepositLot,
) error {
	return r.store.exclusive(ctx, func() error {
		r.store.lock.Lock()
		defer r.store.lock.Unlock()

		if _, ok := r.store.lots[lot.ID]; ok {
			return &domain.LotError{Kind: domain.ErrDuplicateLot, LotID: lot.ID}
		}
		r.store.lots[lot.ID] = cloneLot(*lot)
		return nil
	})
}

func (r *DepositLotRepositoryImpl) GetLot(
	ctx context.Context, id string,
) (*domain.DepositLot, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getLot(id)
}

func (r *DepositLotRepositoryImpl) ListLotsForEscrow(
	ctx context.Context, escrowID string,
	filter domain.LotFilter, page *domain.Page,
) ([]*domain.DepositLot, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	lots := r.findLots(func(l domain.DepositLot) bool {
		return l.EscrowID == escrowID && filter.Match(&l)
	})
	// Newest first.
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].Index > lots[j].Index
	})

	if page == nil {
		return lots, nil
	}
	from := page.Offset()
	if from >= len(lots) {
		return []*domain.DepositLot{}, nil
	}
	to := from + page.Size
	if to > len(lots) {
		to = len(lots)
	}
	return lots[from:to], nil
}

func (r *DepositLotRepositoryImpl) ListPendingLotsForVault(
	ctx context.Context, escrowID string, asset domain.Asset,
) ([]*domain.DepositLot, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	lots := r.findLots(func(l domain.DepositLot) bool {
		return l.EscrowID == escrowID && l.Asset == asset && l.IsPending()
	})
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].Index < lots[j].Index
	})
	return lots, nil
}

func (r *DepositLotRepositoryImpl) UpdateLot(
	ctx context.Context, id string,
	updateFn func(l *domain.DepositLot) (*domain.DepositLot, error),
) error {
	return r.store.exclusive(ctx, func() error {
		r.store.lock.RLock()
		lot, err := r.getLot(id)
		r.store.lock.RUnlock()
		if err != nil {
			return err
		}

		updatedLot, err := updateFn(lot)
		if err != nil {
			return err
		}

		r.store.lock.Lock()
		defer r.store.lock.Unlock()
		r.store.lots[id] = cloneLot(*updatedLot)
		return nil
	})
}

func (r *DepositLotRepositoryImpl) getLot(id string) (*domain.DepositLot, error) {
	l, ok := r.store.lots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLotNotFound, id)
	}
	lot := cloneLot(l)
	return &lot, nil
}

func (r *DepositLotRepositoryImpl) findLots(
	match func(l domain.DepositLot) bool,
) []*domain.DepositLot {
	lots := make([]*domain.DepositLot, 0)
	for _, l := range r.store.lots {
		if match(l) {
			lot := cloneLot(l)
			lots = append(lots, &lot)
		}
	}
	return lots
}
