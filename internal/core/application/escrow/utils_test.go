package escrow_test

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/senda-network/senda-daemon/internal/core/application/escrow"
	"github.com/senda-network/senda-daemon/internal/core/application/mirror"
	"github.com/senda-network/senda-daemon/internal/core/application/pubsub"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	dbbadger "github.com/senda-network/senda-daemon/internal/infrastructure/storage/db/badger"
	"github.com/senda-network/senda-daemon/internal/infrastructure/storage/db/inmemory"
)

var ctx = context.Background()

type testEnv struct {
	svc    *escrow.Service
	repo   ports.RepoManager
	stream *testStream
	// published receives the topic of every webhook publish attempt.
	published chan string
}

type backend struct {
	name    string
	newRepo func(t *testing.T) ports.RepoManager
}

// backends are the storage implementations every service test runs against.
// Badger uses the default retry budget.
var backends = []backend{
	{
		name: "inmemory",
		newRepo: func(t *testing.T) ports.RepoManager {
			return inmemory.NewRepoManager()
		},
	},
	{
		name: "badger",
		newRepo: func(t *testing.T) ports.RepoManager {
			repo, err := dbbadger.NewRepoManager("", nil, 0)
			require.NoError(t, err)
			return repo
		},
	},
}

func newTestEnv(t *testing.T, b backend, publishErr error) testEnv {
	repo := b.newRepo(t)
	t.Cleanup(repo.Close)
	published := make(chan string, 100)
	ps := &mockPubSub{}
	ps.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			select {
			case published <- args.String(0):
			default:
			}
		}).
		Return(publishErr).
		Maybe()
	stream := &testStream{lock: &sync.Mutex{}}

	svc, err := escrow.NewService(
		repo, pubsub.NewService(ps, stream),
		mirror.NewService(nil, nil, 0, 0), nil, domain.NetworkDevnet,
	)
	require.NoError(t, err)
	return testEnv{svc, repo, stream, published}
}

// openFundedEscrow opens an escrow between two random parties, each one
// holding amount of every asset.
func (e testEnv) openFundedEscrow(
	t *testing.T, amount uint64,
) *domain.Escrow {
	sender, receiver := randomKey(), randomKey()
	escrow, err := e.svc.OpenOrGetEscrow(ctx, sender, receiver)
	require.NoError(t, err)

	for _, party := range []string{sender, receiver} {
		for _, asset := range domain.SupportedAssets {
			e.fund(t, party, asset, amount)
		}
	}
	return escrow
}

func (e testEnv) fund(t *testing.T, owner string, asset domain.Asset, amount uint64) {
	err := e.repo.AccountRepository().UpdateAccount(
		ctx, owner, asset, func(a *domain.Account) (*domain.Account, error) {
			if err := a.Credit(amount); err != nil {
				return nil, err
			}
			return a, nil
		},
	)
	require.NoError(t, err)
}

func (e testEnv) deposit(
	t *testing.T, esc *domain.Escrow, depositor string,
	policy domain.Policy, amount uint64,
) *domain.DepositLot {
	lot, err := e.svc.Deposit(ctx, escrow.DepositRequest{
		EscrowID:     esc.ID,
		Depositor:    depositor,
		Counterparty: esc.Counterparty(depositor),
		Asset:        domain.AssetUSDC,
		Policy:       policy,
		Amount:       amount,
	})
	require.NoError(t, err)
	return lot
}

func (e testEnv) vault(
	t *testing.T, esc *domain.Escrow, asset domain.Asset,
) *domain.Vault {
	vault, err := e.repo.VaultRepository().GetVault(ctx, esc.VaultIDs[asset])
	require.NoError(t, err)
	return vault
}

func (e testEnv) balance(
	t *testing.T, owner string, asset domain.Asset,
) uint64 {
	account, err := e.repo.AccountRepository().GetAccount(ctx, owner, asset)
	require.NoError(t, err)
	return account.Balance
}

// requireConservation checks that the vault balance equals the sum of the
// pending lots backed by it.
func (e testEnv) requireConservation(
	t *testing.T, esc *domain.Escrow, asset domain.Asset,
) {
	vaults, err := e.svc.GetVaults(ctx, esc.ID)
	require.NoError(t, err)
	for _, v := range vaults {
		if v.Asset == asset {
			require.True(t, v.IsConsistent(), "balance %d pending %d", v.Balance, v.PendingAmount)
		}
	}
}

type mockPubSub struct {
	mock.Mock
}

func (m *mockPubSub) Subscribe(topic, endpoint, secret string) (string, error) {
	args := m.Called(topic, endpoint, secret)
	return args.String(0), args.Error(1)
}

func (m *mockPubSub) Unsubscribe(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *mockPubSub) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	args := m.Called(topic)

	var res []ports.Subscription
	if a := args.Get(0); a != nil {
		res = a.([]ports.Subscription)
	}
	return res
}

func (m *mockPubSub) Publish(topic string, message string) error {
	args := m.Called(topic, message)
	return args.Error(0)
}

func (m *mockPubSub) Close() error {
	return nil
}

type testStream struct {
	lock   *sync.Mutex
	topics []string
}

func (s *testStream) Broadcast(topic string, _ []string, _ []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.topics = append(s.topics, topic)
}

func (s *testStream) count(topic string) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	n := 0
	for _, t := range s.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func randomKey() string {
	return base58.Encode(randomBytes(32))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	// nolint
	rand.Read(b)
	return b
}
