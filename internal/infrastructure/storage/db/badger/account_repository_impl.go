package dbbadger

import (
	"context"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type accountRepositoryImpl struct {
	store *badgerhold.Store
}

// NewAccountRepositoryImpl initialize a badger implementation of the
// domain.AccountRepository
func NewAccountRepositoryImpl(store *badgerhold.Store) domain.AccountRepository {
	return accountRepositoryImpl{store}
}

func (r accountRepositoryImpl) GetAccount(
	ctx context.Context, owner string, asset domain.Asset,
) (*domain.Account, error) {
	return r.getOrCreateAccount(ctx, owner, asset)
}

func (r accountRepositoryImpl) ListAccountsForOwner(
	ctx context.Context, owner string,
) ([]*domain.Account, error) {
	query := badgerhold.Where("Owner").Eq(owner).SortBy("Asset")

	var accounts []domain.Account
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &accounts, query)
	} else {
		err = r.store.Find(&accounts, query)
	}
	if err != nil {
		return nil, err
	}

	list := make([]*domain.Account, 0, len(accounts))
	for i := range accounts {
		list = append(list, &accounts[i])
	}
	return list, nil
}

func (r accountRepositoryImpl) UpdateAccount(
	ctx context.Context, owner string, asset domain.Asset,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	account, err := r.getOrCreateAccount(ctx, owner, asset)
	if err != nil {
		return err
	}

	updatedAccount, err := updateFn(account)
	if err != nil {
		return err
	}

	key := updatedAccount.Key()
	if tx := txFromContext(ctx); tx != nil {
		return r.store.TxUpsert(tx, key, *updatedAccount)
	}
	return r.store.Upsert(key, *updatedAccount)
}

func (r accountRepositoryImpl) getOrCreateAccount(
	ctx context.Context, owner string, asset domain.Asset,
) (*domain.Account, error) {
	var account domain.Account
	var err error
	key := domain.AccountKey(owner, asset)
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, key, &account)
	} else {
		err = r.store.Get(key, &account)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return &domain.Account{Owner: owner, Asset: asset}, nil
		}
		return nil, err
	}
	return &account, nil
}
