package domain_test

import (
	"math"
	"testing"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestVaultCreditAndDebit(t *testing.T) {
	t.Parallel()

	escrow := newTestEscrow(t)
	vault := domain.NewVault(escrow.ID, domain.AssetUSDC, domain.NetworkDevnet)

	lotA := newTestLot(t, escrow, escrow.Sender, domain.PolicySenderOnly)
	lotA.Amount = 300000
	lotB := newTestLot(t, escrow, escrow.Sender, domain.PolicySenderOnly)
	lotB.Amount = 200000

	require.ErrorIs(t, vault.Credit(0), domain.ErrInvalidAmount)
	require.NoError(t, vault.Credit(lotA.Amount))
	require.NoError(t, vault.Credit(lotB.Amount))
	require.Equal(t, uint64(500000), vault.Balance)

	require.NoError(t, vault.DebitExact(lotA))
	require.Equal(t, uint64(200000), vault.Balance)
	require.NoError(t, vault.DebitExact(lotB))
	require.Zero(t, vault.Balance)

	err := vault.DebitExact(lotB)
	require.ErrorIs(t, err, domain.ErrInsufficientVaultBalance)
	require.Zero(t, vault.Balance)
}

func TestVaultAssetMismatch(t *testing.T) {
	t.Parallel()

	escrow := newTestEscrow(t)
	vault := domain.NewVault(escrow.ID, domain.AssetUSDT, domain.NetworkDevnet)
	require.NoError(t, vault.Credit(1000000))

	lot := newTestLot(t, escrow, escrow.Sender, domain.PolicySenderOnly)
	require.ErrorIs(t, vault.DebitExact(lot), domain.ErrAssetMismatch)
}

func TestVaultHaltAndReconcile(t *testing.T) {
	t.Parallel()

	escrow := newTestEscrow(t)
	vault := domain.NewVault(escrow.ID, domain.AssetUSDC, domain.NetworkDevnet)
	require.NoError(t, vault.Credit(100))

	require.ErrorIs(t, vault.Reconcile(100), domain.ErrVaultNotHalted)

	vault.Halt("test")
	require.True(t, vault.Halted)
	require.ErrorIs(t, vault.Credit(1), domain.ErrVaultHalted)

	lot := newTestLot(t, escrow, escrow.Sender, domain.PolicySenderOnly)
	require.ErrorIs(t, vault.DebitExact(lot), domain.ErrVaultHalted)

	require.ErrorIs(t, vault.Reconcile(200), domain.ErrVaultInconsistent)
	require.True(t, vault.Halted)

	require.NoError(t, vault.Reconcile(100))
	require.False(t, vault.Halted)
	require.Empty(t, vault.HaltReason)
}

func TestAccountDebit(t *testing.T) {
	t.Parallel()

	account := &domain.Account{Owner: randomKey(), Asset: domain.AssetUSDC}
	require.ErrorIs(t, account.Debit(1), domain.ErrInsufficientFunds)
	require.NoError(t, account.Credit(10))
	require.NoError(t, account.Debit(4))
	require.Equal(t, uint64(6), account.Balance)
	require.ErrorIs(t, account.Debit(0), domain.ErrInvalidAmount)
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	escrow := newTestEscrow(t)
	lot := newTestLot(t, escrow, escrow.Sender, domain.PolicySenderOnly)
	require.NoError(t, lot.Complete())

	require.Equal(t, "INVALID_STATE", domain.ErrorCode(lot.Cancel()))
	require.Equal(t, "NOT_FOUND", domain.ErrorCode(domain.ErrLotNotFound))
	require.Equal(t, "INSUFFICIENT_VAULT_BALANCE", domain.ErrorCode(
		&domain.LotError{Kind: domain.ErrInsufficientVaultBalance},
	))
	require.Equal(t, "INTERNAL", domain.ErrorCode(nil))
}

func TestCreditOverflow(t *testing.T) {
	t.Parallel()

	escrow := newTestEscrow(t)
	vault := domain.NewVault(escrow.ID, domain.AssetUSDC, domain.NetworkDevnet)
	vault.Balance = math.MaxUint64
	require.ErrorIs(t, vault.Credit(2), domain.ErrBalanceOverflow)
	require.Equal(t, uint64(math.MaxUint64), vault.Balance)

	vault.Balance = math.MaxUint64 - 2
	require.NoError(t, vault.Credit(2))
	require.Equal(t, uint64(math.MaxUint64), vault.Balance)

	account := &domain.Account{
		Owner: randomKey(), Asset: domain.AssetUSDC, Balance: math.MaxUint64,
	}
	require.ErrorIs(t, account.Credit(2), domain.ErrBalanceOverflow)
	require.Equal(t, uint64(math.MaxUint64), account.Balance)
}
