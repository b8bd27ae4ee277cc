package db_test

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/require"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	dbbadger "github.com/senda-network/senda-daemon/internal/infrastructure/storage/db/badger"
	"github.com/senda-network/senda-daemon/internal/infrastructure/storage/db/inmemory"
)

type repoManager struct {
	Name    string
	Manager ports.RepoManager
}

// createRepoManagers returns a fresh in-memory badger manager, with the
// default retry budget, and an inmemory one. Both are closed at test
// cleanup.
func createRepoManagers(t *testing.T) []repoManager {
	badgerRepoManager, err := dbbadger.NewRepoManager("", nil, 0)
	require.NoError(t, err)
	inmemoryRepoManager := inmemory.NewRepoManager()

	t.Cleanup(func() {
		badgerRepoManager.Close()
		inmemoryRepoManager.Close()
	})

	return []repoManager{
		{Name: "badger", Manager: badgerRepoManager},
		{Name: "inmemory", Manager: inmemoryRepoManager},
	}
}

func makeRandomEscrow(t *testing.T) (*domain.Escrow, []*domain.Vault) {
	escrow, vaults, err := domain.NewEscrow(
		randomKey(), randomKey(), domain.NetworkDevnet,
	)
	require.NoError(t, err)
	return escrow, vaults
}

func makeRandomLots(
	t *testing.T, escrow *domain.Escrow, num int, asset domain.Asset,
) []*domain.DepositLot {
	lots := make([]*domain.DepositLot, 0, num)
	for i := 0; i < num; i++ {
		depositor := escrow.Sender
		if i%2 == 1 {
			depositor = escrow.Receiver
		}
		index, err := escrow.BindNextIndex(nil)
		require.NoError(t, err)
		lot, err := domain.NewDepositLot(
			escrow, index, depositor, escrow.Counterparty(depositor),
			asset, domain.PolicySenderOnly, uint64(randomIntInRange(1, 1000000)),
		)
		require.NoError(t, err)
		lots = append(lots, lot)
	}
	return lots
}

func randomKey() string {
	return base58.Encode(randomBytes(32))
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}

func randomIntInRange(min, max int) int {
	b := randomBytes(4)
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	return min + n%(max-min)
}
