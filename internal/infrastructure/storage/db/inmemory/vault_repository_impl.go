package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/senda-network/senda-daemon/internal/core/domain"
)

// VaultRepositoryImpl represents an in memory storage
type VaultRepositoryImpl struct {
	store *store
}

func NewVaultRepositoryImpl(s *store) *VaultRepositoryImpl {
	return &VaultRepositoryImpl{s}
}

func (r *VaultRepositoryImpl) AddVaults(
	ctx context.Context, vaults []*domain.Vault,
) error {
	return r.store.exclusive(ctx, func() error {
		r.store.lock.Lock()
		defer r.store.lock.Unlock()

		for _, v := range vaults {
			if _, ok := r.store.vaults[v.ID]; ok {
				return fmt.Errorf("vault %s already exists", v.ID)
			}
		}
		for _, v := range vaults {
			r.store.vaults[v.ID] = *v
		}
		return nil
	})
}

func (r *VaultRepositoryImpl) GetVault(
	ctx context.Context, id string,
) (*domain.Vault, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getVault(id)
}

func (r *VaultRepositoryImpl) ListVaultsForEscrow(
	ctx context.Context, escrowID string,
) ([]*domain.Vault, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	list := make([]*domain.Vault, 0)
	for _, v := range r.store.vaults {
		if v.EscrowID == escrowID {
			vault := v
			list = append(list, &vault)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Asset < list[j].Asset
	})
	return list, nil
}

func (r *VaultRepositoryImpl) UpdateVault(
	ctx context.Context, id string,
	updateFn func(v *domain.Vault) (*domain.Vault, error),
) error {
	return r.store.exclusive(ctx, func() error {
		r.store.lock.RLock()
		vault, err := r.getVault(id)
		r.store.lock.RUnlock()
		if err != nil {
			return err
		}

		updatedVault, err := updateFn(vault)
		if err != nil {
			return err
		}

		r.store.lock.Lock()
		defer r.store.lock.Unlock()
		r.store.vaults[id] = *updatedVault
		return nil
	})
}

func (r *VaultRepositoryImpl) getVault(id string) (*domain.Vault, error) {
	v, ok := r.store.vaults[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrVaultNotFound, id)
	}
	return &v, nil
}

// AccountRepositoryImpl represents an in memory storage
type AccountRepositoryImpl struct {
	store *store
}

func NewAccountRepositoryImpl(s *store) *AccountRepositoryImpl {
	return &AccountRepositoryImpl{s}
}

func (r *AccountRepositoryImpl) GetAccount(
	ctx context.Context, owner string, asset domain.Asset,
) (*domain.Account, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getOrCreateAccount(owner, asset), nil
}

func (r *AccountRepositoryImpl) ListAccountsForOwner(
	ctx context.Context, owner string,
) ([]*domain.Account, error) {
	defer r.store.shared(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	list := make([]*domain.Account, 0)
	for _, a := range r.store.accounts {
		if a.Owner == owner {
			account := a
			list = append(list, &account)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Asset < list[j].Asset
	})
	return list, nil
}

func (r *AccountRepositoryImpl) UpdateAccount(
	ctx context.Context, owner string, asset domain.Asset,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	return r.store.exclusive(ctx, func() error {
		r.store.lock.RLock()
		account := r.getOrCreateAccount(owner, asset)
		r.store.lock.RUnlock()

		updatedAccount, err := updateFn(account)
		if err != nil {
			return err
		}

		r.store.lock.Lock()
		defer r.store.lock.Unlock()
		r.store.accounts[updatedAccount.Key()] = *updatedAccount
		return nil
	})
}

func (r *AccountRepositoryImpl) getOrCreateAccount(
	owner string, asset domain.Asset,
) *domain.Account {
	a, ok := r.store.accounts[domain.AccountKey(owner, asset)]
	if !ok {
		return &domain.Account{Owner: owner, Asset: asset}
	}
	return &a
}
