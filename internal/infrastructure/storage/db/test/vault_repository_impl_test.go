package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/senda-network/senda-daemon/internal/core/domain"
)

func TestVaultRepositoryImplementations(t *testing.T) {
	repositories := createRepoManagers(t)

	for i := range repositories {
		repo := repositories[i]

		t.Run(repo.Name, func(t *testing.T) {
			t.Run("add_and_update_vaults", func(t *testing.T) {
				testAddAndUpdateVaults(t, repo)
			})
			t.Run("accounts", func(t *testing.T) {
				testAccounts(t, repo)
			})
		})
	}
}

func testAddAndUpdateVaults(t *testing.T, repo repoManager) {
	vaultRepository := repo.Manager.VaultRepository()
	ctx := context.Background()
	escrow, vaults := makeRandomEscrow(t)

	require.NoError(t, vaultRepository.AddVaults(ctx, vaults))
	require.Error(t, vaultRepository.AddVaults(ctx, vaults))

	list, err := vaultRepository.ListVaultsForEscrow(ctx, escrow.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, domain.AssetUSDC, list[0].Asset)
	require.Equal(t, domain.AssetUSDT, list[1].Asset)

	vaultID := escrow.VaultIDs[domain.AssetUSDC]
	err = vaultRepository.UpdateVault(
		ctx, vaultID, func(v *domain.Vault) (*domain.Vault, error) {
			if err := v.Credit(500000); err != nil {
				return nil, err
			}
			return v, nil
		},
	)
	require.NoError(t, err)

	vault, err := vaultRepository.GetVault(ctx, vaultID)
	require.NoError(t, err)
	require.Equal(t, uint64(500000), vault.Balance)

	_, err = vaultRepository.GetVault(ctx, randomKey())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testAccounts(t *testing.T, repo repoManager) {
	accountRepository := repo.Manager.AccountRepository()
	ctx := context.Background()
	owner := randomKey()

	account, err := accountRepository.GetAccount(ctx, owner, domain.AssetUSDT)
	require.NoError(t, err)
	require.Zero(t, account.Balance)

	accounts, err := accountRepository.ListAccountsForOwner(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, accounts)

	for _, asset := range domain.SupportedAssets {
		err := accountRepository.UpdateAccount(
			ctx, owner, asset, func(a *domain.Account) (*domain.Account, error) {
				if err := a.Credit(1000); err != nil {
					return nil, err
				}
				return a, nil
			},
		)
		require.NoError(t, err)
	}

	err = accountRepository.UpdateAccount(
		ctx, owner, domain.AssetUSDT, func(a *domain.Account) (*domain.Account, error) {
			if err := a.Debit(2000); err != nil {
				return nil, err
			}
			return a, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	accounts, err = accountRepository.ListAccountsForOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	for _, a := range accounts {
		require.Equal(t, uint64(1000), a.Balance)
	}
}
