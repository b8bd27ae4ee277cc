package dbbadger

import (
	"context"
	"fmt"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type vaultRepositoryImpl struct {
	store *badgerhold.Store
}

// NewVaultRepositoryImpl initialize a badger implementation of the
// domain.VaultRepository
func NewVaultRepositoryImpl(store *badgerhold.Store) domain.VaultRepository {
	return vaultRepositoryImpl{store}
}

func (r vaultRepositoryImpl) AddVaults(
	ctx context.Context, vaults []*domain.Vault,
) error {
	tx := txFromContext(ctx)
	for _, v := range vaults {
		var err error
		if tx != nil {
			err = r.store.TxInsert(tx, v.ID, *v)
		} else {
			err = r.store.Insert(v.ID, *v)
		}
		if err != nil {
			if err == badgerhold.ErrKeyExists {
				return fmt.Errorf("vault %s already exists", v.ID)
			}
			return err
		}
	}
	return nil
}

func (r vaultRepositoryImpl) GetVault(
	ctx context.Context, id string,
) (*domain.Vault, error) {
	return r.getVault(ctx, id)
}

func (r vaultRepositoryImpl) ListVaultsForEscrow(
	ctx context.Context, escrowID string,
) ([]*domain.Vault, error) {
	query := badgerhold.Where("EscrowID").Eq(escrowID).SortBy("Asset")

	var vaults []domain.Vault
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &vaults, query)
	} else {
		err = r.store.Find(&vaults, query)
	}
	if err != nil {
		return nil, err
	}

	list := make([]*domain.Vault, 0, len(vaults))
	for i := range vaults {
		list = append(list, &vaults[i])
	}
	return list, nil
}

func (r vaultRepositoryImpl) UpdateVault(
	ctx context.Context, id string,
	updateFn func(v *domain.Vault) (*domain.Vault, error),
) error {
	vault, err := r.getVault(ctx, id)
	if err != nil {
		return err
	}

	updatedVault, err := updateFn(vault)
	if err != nil {
		return err
	}

	if tx := txFromContext(ctx); tx != nil {
		return r.store.TxUpdate(tx, id, *updatedVault)
	}
	return r.store.Update(id, *updatedVault)
}

func (r vaultRepositoryImpl) getVault(
	ctx context.Context, id string,
) (*domain.Vault, error) {
	var vault domain.Vault
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, id, &vault)
	} else {
		err = r.store.Get(id, &vault)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrVaultNotFound, id)
		}
		return nil, err
	}
	return &vault, nil
}
