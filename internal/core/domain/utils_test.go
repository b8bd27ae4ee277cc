package domain_test

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func randomKey() string {
	return base58.Encode(randomBytes(32))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	//nolint
	rand.Read(b)
	return b
}

func newTestEscrow(t *testing.T) *domain.Escrow {
	escrow, _, err := domain.NewEscrow(randomKey(), randomKey(), domain.NetworkDevnet)
	require.NoError(t, err)
	return escrow
}

func newTestLot(
	t *testing.T, escrow *domain.Escrow, depositor string, policy domain.Policy,
) *domain.DepositLot {
	index, err := escrow.BindNextIndex(nil)
	require.NoError(t, err)
	lot, err := domain.NewDepositLot(
		escrow, index, depositor, escrow.Counterparty(depositor),
		domain.AssetUSDC, policy, 500000,
	)
	require.NoError(t, err)
	return lot
}
