package escrow_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/senda-network/senda-daemon/internal/core/application/escrow"
	"github.com/senda-network/senda-daemon/internal/core/application/pubsub"
	"github.com/senda-network/senda-daemon/internal/core/domain"
)

const initialFunds = 1_000_000_000

func TestService(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, b backend)
	}{
		{"open_or_get_escrow", testOpenOrGetEscrow},
		{"concurrent_open_or_get_escrow", testConcurrentOpenOrGetEscrow},
		{"deposit", testDeposit},
		{"concurrent_deposits", testConcurrentDeposits},
		{"release_sender_only", testReleaseSenderOnly},
		{"release_receiver_only", testReleaseReceiverOnly},
		{"release_dual", testReleaseDual},
		{"cancel", testCancel},
		{"isolation_under_sharing", testIsolationUnderSharing},
		{"no_double_transition", testNoDoubleTransition},
		{"vault_halt", testVaultHalt},
		{"failing_notifier", testFailingNotifier},
		{"list_lots", testListLots},
	}

	for _, b := range backends {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			for _, tt := range tests {
				tt := tt
				t.Run(tt.name, func(t *testing.T) {
					tt.run(t, b)
				})
			}
		})
	}
}

func testOpenOrGetEscrow(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	sender, receiver := randomKey(), randomKey()

	first, err := env.svc.OpenOrGetEscrow(ctx, sender, receiver)
	require.NoError(t, err)
	second, err := env.svc.OpenOrGetEscrow(ctx, sender, receiver)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	reversed, err := env.svc.OpenOrGetEscrow(ctx, receiver, sender)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, reversed.ID)

	vaults, err := env.svc.GetVaults(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, vaults, len(domain.SupportedAssets))
	for _, v := range vaults {
		require.Zero(t, v.Balance)
		require.Zero(t, v.PendingLots)
	}

	_, err = env.svc.OpenOrGetEscrow(ctx, sender, sender)
	require.ErrorIs(t, err, domain.ErrInvalidParties)

	escrows, err := env.svc.ListEscrowsForParty(ctx, sender)
	require.NoError(t, err)
	require.Len(t, escrows, 2)
}

func testConcurrentOpenOrGetEscrow(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	sender, receiver := randomKey(), randomKey()

	type result struct {
		id  string
		err error
	}

	num := 10
	results := make(chan result, num)
	wg := &sync.WaitGroup{}
	for i := 0; i < num; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			escrow, err := env.svc.OpenOrGetEscrow(ctx, sender, receiver)
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{id: escrow.ID}
		}()
	}
	wg.Wait()
	close(results)

	expectedID := domain.DeriveEscrowID(sender, receiver)
	for r := range results {
		require.NoError(t, r.err)
		require.Equal(t, expectedID, r.id)
	}
}

// Deposits racing on the same escrow bind distinct discriminators, and
// deposits of a party racing on two escrows never lose a debit.
func testConcurrentDeposits(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	esc := env.openFundedEscrow(t, initialFunds)
	other, err := env.svc.OpenOrGetEscrow(ctx, esc.Sender, randomKey())
	require.NoError(t, err)

	numOfDeposits := 40
	amount := uint64(1000)
	wg := &sync.WaitGroup{}
	errs := make(chan error, 2*numOfDeposits)
	for i := 0; i < numOfDeposits; i++ {
		for _, e := range []*domain.Escrow{esc, other} {
			e := e
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.svc.Deposit(ctx, escrow.DepositRequest{
					EscrowID:     e.ID,
					Depositor:    e.Sender,
					Counterparty: e.Receiver,
					Asset:        domain.AssetUSDC,
					Policy:       domain.PolicySenderOnly,
					Amount:       amount,
				})
				errs <- err
			}()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	for _, e := range []*domain.Escrow{esc, other} {
		got, err := env.svc.GetEscrow(ctx, e.ID)
		require.NoError(t, err)
		require.Equal(t, uint64(numOfDeposits), got.DepositCount)

		lots, err := env.svc.ListLots(
			ctx, e.ID, domain.LotFilter{}, domain.NewPage(1, 100),
		)
		require.NoError(t, err)
		require.Len(t, lots, numOfDeposits)
		for i, lot := range lots {
			require.Equal(t, uint64(numOfDeposits-1-i), lot.Index)
		}

		require.Equal(
			t, uint64(numOfDeposits)*amount, env.vault(t, e, domain.AssetUSDC).Balance,
		)
		env.requireConservation(t, e, domain.AssetUSDC)
	}
	require.Equal(
		t, initialFunds-2*uint64(numOfDeposits)*amount,
		env.balance(t, esc.Sender, domain.AssetUSDC),
	)
}

func testDeposit(t *testing.T, b backend) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, b, nil)
		esc := env.openFundedEscrow(t, initialFunds)

		lot := env.deposit(t, esc, esc.Sender, domain.PolicySenderOnly, 500000)
		require.Equal(t, uint64(0), lot.Index)
		require.Equal(t, domain.DeriveLotID(esc.ID, 0), lot.ID)
		require.Equal(t, domain.LotStatePendingWithdrawal, lot.State)
		require.True(t, lot.IsSigned(domain.RoleSender))

		lot = env.deposit(t, esc, esc.Receiver, domain.PolicyDual, 250000)
		require.Equal(t, uint64(1), lot.Index)

		require.Equal(t, uint64(750000), env.vault(t, esc, domain.AssetUSDC).Balance)
		require.Equal(t, uint64(initialFunds-500000), env.balance(t, esc.Sender, domain.AssetUSDC))
		require.Equal(t, uint64(initialFunds-250000), env.balance(t, esc.Receiver, domain.AssetUSDC))

		got, err := env.svc.GetEscrow(ctx, esc.ID)
		require.NoError(t, err)
		require.Equal(t, uint64(2), got.DepositCount)
		require.Equal(t, uint64(750000), got.DepositedTotal[domain.AssetUSDC])

		env.requireConservation(t, esc, domain.AssetUSDC)
		require.Eventually(t, func() bool {
			return env.stream.count(pubsub.EventDepositCreated) == 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, b, nil)
		esc := env.openFundedEscrow(t, 1000)
		stale, future := uint64(0), uint64(5)

		// Binds index 0.
		env.deposit(t, esc, esc.Sender, domain.PolicySenderOnly, 100)

		tests := []struct {
			name        string
			req         escrow.DepositRequest
			expectedErr error
		}{
			{
				name: "zero amount",
				req: escrow.DepositRequest{
					EscrowID: esc.ID, Depositor: esc.Sender, Counterparty: esc.Receiver,
					Asset: domain.AssetUSDC, Policy: domain.PolicyDual,
				},
				expectedErr: domain.ErrInvalidAmount,
			},
			{
				name: "unknown escrow",
				req: escrow.DepositRequest{
					EscrowID: randomKey(), Depositor: esc.Sender, Counterparty: esc.Receiver,
					Asset: domain.AssetUSDC, Policy: domain.PolicyDual, Amount: 1,
				},
				expectedErr: domain.ErrNotFound,
			},
			{
				name: "depositor not a party",
				req: escrow.DepositRequest{
					EscrowID: esc.ID, Depositor: randomKey(), Counterparty: esc.Receiver,
					Asset: domain.AssetUSDC, Policy: domain.PolicyDual, Amount: 1,
				},
				expectedErr: domain.ErrInvalidParties,
			},
			{
				name: "counterparty is the depositor",
				req: escrow.DepositRequest{
					EscrowID: esc.ID, Depositor: esc.Sender, Counterparty: esc.Sender,
					Asset: domain.AssetUSDC, Policy: domain.PolicyDual, Amount: 1,
				},
				expectedErr: domain.ErrInvalidParties,
			},
			{
				name: "unknown policy",
				req: escrow.DepositRequest{
					EscrowID: esc.ID, Depositor: esc.Sender, Counterparty: esc.Receiver,
					Asset: domain.AssetUSDC, Amount: 1,
				},
				expectedErr: domain.ErrInvalidPolicy,
			},
			{
				name: "unknown asset",
				req: escrow.DepositRequest{
					EscrowID: esc.ID, Depositor: esc.Sender, Counterparty: esc.Receiver,
					Policy: domain.PolicyDual, Amount: 1,
				},
				expectedErr: domain.ErrInvalidAsset,
			},
			{
				name: "insufficient funds",
				req: escrow.DepositRequest{
					EscrowID: esc.ID, Depositor: esc.Sender, Counterparty: esc.Receiver,
					Asset: domain.AssetUSDT, Policy: domain.PolicyDual, Amount: 1001,
				},
				expectedErr: domain.ErrInsufficientFunds,
			},
			{
				name: "stale discriminator",
				req: escrow.DepositRequest{
					EscrowID: esc.ID, Depositor: esc.Sender, Counterparty: esc.Receiver,
					Asset: domain.AssetUSDC, Policy: domain.PolicyDual, Amount: 1,
					ExpectedIndex: &stale,
				},
				expectedErr: domain.ErrDuplicateLot,
			},
			{
				name: "future discriminator",
				req: escrow.DepositRequest{
					EscrowID: esc.ID, Depositor: esc.Sender, Counterparty: esc.Receiver,
					Asset: domain.AssetUSDC, Policy: domain.PolicyDual, Amount: 1,
					ExpectedIndex: &future,
				},
				expectedErr: domain.ErrInvalidDiscriminator,
			},
		}

		for _, tt := range tests {
			_, err := env.svc.Deposit(ctx, tt.req)
			require.ErrorIs(t, err, tt.expectedErr, tt.name)
		}

		// Failed deposits leave no trace.
		got, err := env.svc.GetEscrow(ctx, esc.ID)
		require.NoError(t, err)
		require.Equal(t, uint64(1), got.DepositCount)
		require.Equal(t, uint64(100), env.vault(t, esc, domain.AssetUSDC).Balance)
		require.Equal(t, uint64(900), env.balance(t, esc.Sender, domain.AssetUSDC))
		require.Equal(t, uint64(1000), env.balance(t, esc.Sender, domain.AssetUSDT))
	})

	t.Run("same discriminator", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, b, nil)
		esc := env.openFundedEscrow(t, initialFunds)
		index := uint64(0)

		errs := make(chan error, 2)
		wg := &sync.WaitGroup{}
		for _, depositor := range []string{esc.Sender, esc.Receiver} {
			wg.Add(1)
			go func(depositor string) {
				defer wg.Done()
				_, err := env.svc.Deposit(ctx, escrow.DepositRequest{
					EscrowID:      esc.ID,
					Depositor:     depositor,
					Counterparty:  esc.Counterparty(depositor),
					Asset:         domain.AssetUSDC,
					Policy:        domain.PolicyDual,
					Amount:        1000,
					ExpectedIndex: &index,
				})
				errs <- err
			}(depositor)
		}
		wg.Wait()
		close(errs)

		var failures []error
		for err := range errs {
			if err != nil {
				failures = append(failures, err)
			}
		}
		require.Len(t, failures, 1)
		require.ErrorIs(t, failures[0], domain.ErrDuplicateLot)
		require.Equal(t, uint64(1000), env.vault(t, esc, domain.AssetUSDC).Balance)
	})
}

func testReleaseSenderOnly(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	esc := env.openFundedEscrow(t, initialFunds)
	lot := env.deposit(t, esc, esc.Sender, domain.PolicySenderOnly, 500000)
	receiverBalance := env.balance(t, esc.Receiver, domain.AssetUSDC)

	_, err := env.svc.Release(ctx, lot.ID, esc.Receiver, "")
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = env.svc.Release(ctx, lot.ID, randomKey(), "")
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	res, err := env.svc.Release(ctx, lot.ID, esc.Sender, "")
	require.NoError(t, err)
	require.True(t, res.IsCompleted())
	require.Equal(t, esc.Receiver, res.Destination)
	require.Equal(t, domain.LotStateCompleted, res.Lot.State)

	require.Zero(t, env.vault(t, esc, domain.AssetUSDC).Balance)
	require.Equal(
		t, receiverBalance+500000, env.balance(t, esc.Receiver, domain.AssetUSDC),
	)

	_, err = env.svc.Release(ctx, lot.ID, esc.Sender, "")
	require.ErrorIs(t, err, domain.ErrInvalidState)
	var lotErr *domain.LotError
	require.True(t, errors.As(err, &lotErr))
	require.Equal(t, lot.ID, lotErr.LotID)
	require.Equal(t, domain.LotStateCompleted, lotErr.Actual)

	require.Eventually(t, func() bool {
		return env.stream.count(pubsub.EventLotReleased) == 1
	}, time.Second, 10*time.Millisecond)
}

func testReleaseReceiverOnly(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	esc := env.openFundedEscrow(t, initialFunds)
	lot := env.deposit(t, esc, esc.Sender, domain.PolicyReceiverOnly, 1000)
	senderBalance := env.balance(t, esc.Sender, domain.AssetUSDC)

	_, err := env.svc.Release(ctx, lot.ID, esc.Sender, "")
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	// The receiver releasing sends the funds to its counterparty.
	res, err := env.svc.Release(ctx, lot.ID, esc.Receiver, "")
	require.NoError(t, err)
	require.Equal(t, esc.Sender, res.Destination)
	require.Equal(t, senderBalance+1000, env.balance(t, esc.Sender, domain.AssetUSDC))
}

func testReleaseDual(t *testing.T, b backend) {
	t.Parallel()

	t.Run("sequential signatures", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, b, nil)
		esc := env.openFundedEscrow(t, initialFunds)
		lot := env.deposit(t, esc, esc.Sender, domain.PolicyDual, 100_000_000)
		receiverBalance := env.balance(t, esc.Receiver, domain.AssetUSDC)

		res, err := env.svc.Release(ctx, lot.ID, esc.Sender, "")
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeAwaitingSignatures, res.Outcome)
		require.Equal(t, []domain.Role{domain.RoleReceiver}, res.MissingRoles)
		require.Equal(t, domain.LotStatePendingWithdrawal, res.Lot.State)
		require.Equal(t, uint64(100_000_000), env.vault(t, esc, domain.AssetUSDC).Balance)

		res, err = env.svc.Release(ctx, lot.ID, esc.Receiver, "")
		require.NoError(t, err)
		require.True(t, res.IsCompleted())
		require.Equal(t, esc.Receiver, res.Destination)
		require.ElementsMatch(
			t, []domain.Role{domain.RoleSender, domain.RoleReceiver},
			res.Lot.SignedRoles(),
		)
		require.Zero(t, env.vault(t, esc, domain.AssetUSDC).Balance)
		require.Equal(
			t, receiverBalance+100_000_000,
			env.balance(t, esc.Receiver, domain.AssetUSDC),
		)

		require.Eventually(t, func() bool {
			return env.stream.count(pubsub.EventSignatureRecorded) == 1 &&
				env.stream.count(pubsub.EventLotReleased) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("receiver signs first", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, b, nil)
		esc := env.openFundedEscrow(t, initialFunds)
		lot := env.deposit(t, esc, esc.Sender, domain.PolicyDual, 1000)

		// The depositor signature is recorded at deposit time.
		res, err := env.svc.Release(ctx, lot.ID, esc.Receiver, "")
		require.NoError(t, err)
		require.True(t, res.IsCompleted())
	})

	t.Run("co-signed", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, b, nil)
		esc := env.openFundedEscrow(t, initialFunds)
		lot := env.deposit(t, esc, esc.Receiver, domain.PolicyDual, 1000)

		_, err := env.svc.Release(ctx, lot.ID, esc.Sender, randomKey())
		require.ErrorIs(t, err, domain.ErrNotAuthorized)

		res, err := env.svc.Release(ctx, lot.ID, esc.Sender, esc.Receiver)
		require.NoError(t, err)
		require.True(t, res.IsCompleted())
		require.Equal(t, esc.Sender, res.Destination)
	})

	t.Run("re-signing does not complete", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, b, nil)
		esc := env.openFundedEscrow(t, initialFunds)
		lot := env.deposit(t, esc, esc.Receiver, domain.PolicyDual, 1000)

		for i := 0; i < 3; i++ {
			res, err := env.svc.Release(ctx, lot.ID, esc.Receiver, "")
			require.NoError(t, err)
			require.Equal(t, domain.OutcomeAwaitingSignatures, res.Outcome)
			require.Len(t, res.Lot.Signatures, 2)
		}
	})
}

func testCancel(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	esc := env.openFundedEscrow(t, initialFunds)
	lot := env.deposit(t, esc, esc.Receiver, domain.PolicyReceiverOnly, 2000)
	other := env.deposit(t, esc, esc.Receiver, domain.PolicyReceiverOnly, 3000)
	balance := env.balance(t, esc.Receiver, domain.AssetUSDC)

	_, err := env.svc.Cancel(ctx, lot.ID, esc.Sender)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	cancelled, err := env.svc.Cancel(ctx, lot.ID, esc.Receiver)
	require.NoError(t, err)
	require.Equal(t, domain.LotStateCancelled, cancelled.State)
	require.Equal(t, balance+2000, env.balance(t, esc.Receiver, domain.AssetUSDC))
	require.Equal(t, uint64(3000), env.vault(t, esc, domain.AssetUSDC).Balance)

	_, err = env.svc.Cancel(ctx, lot.ID, esc.Receiver)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = env.svc.Release(ctx, lot.ID, esc.Receiver, "")
	require.ErrorIs(t, err, domain.ErrInvalidState)

	// Cancelling never changes the deposit count.
	got, err := env.svc.GetEscrow(ctx, esc.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.DepositCount)

	untouched, err := env.svc.GetLot(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, other, untouched)
	env.requireConservation(t, esc, domain.AssetUSDC)
}

func testIsolationUnderSharing(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	esc := env.openFundedEscrow(t, initialFunds)
	lotA := env.deposit(t, esc, esc.Sender, domain.PolicySenderOnly, 300000)
	lotB := env.deposit(t, esc, esc.Sender, domain.PolicySenderOnly, 200000)
	require.Equal(t, uint64(500000), env.vault(t, esc, domain.AssetUSDC).Balance)

	_, err := env.svc.Release(ctx, lotA.ID, esc.Sender, "")
	require.NoError(t, err)
	require.Equal(t, uint64(200000), env.vault(t, esc, domain.AssetUSDC).Balance)

	gotB, err := env.svc.GetLot(ctx, lotB.ID)
	require.NoError(t, err)
	require.Equal(t, lotB, gotB)

	_, err = env.svc.Release(ctx, lotB.ID, esc.Sender, "")
	require.NoError(t, err)
	require.Zero(t, env.vault(t, esc, domain.AssetUSDC).Balance)
}

func testNoDoubleTransition(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	esc := env.openFundedEscrow(t, initialFunds)

	numOfLots := 10
	lots := make([]*domain.DepositLot, 0, numOfLots)
	for i := 0; i < numOfLots; i++ {
		lots = append(lots, env.deposit(t, esc, esc.Sender, domain.PolicySenderOnly, 1000))
	}

	wg := &sync.WaitGroup{}
	results := make(chan error, 2*numOfLots)
	for _, lot := range lots {
		lotID := lot.ID
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := env.svc.Release(ctx, lotID, esc.Sender, "")
			results <- err
		}()
		go func() {
			defer wg.Done()
			_, err := env.svc.Cancel(ctx, lotID, esc.Sender)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, domain.ErrInvalidState)
	}
	require.Equal(t, numOfLots, successes)
	require.Zero(t, env.vault(t, esc, domain.AssetUSDC).Balance)
	require.Equal(
		t, uint64(2*initialFunds),
		env.balance(t, esc.Sender, domain.AssetUSDC)+
			env.balance(t, esc.Receiver, domain.AssetUSDC),
	)
}

func testVaultHalt(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	esc := env.openFundedEscrow(t, initialFunds)
	lot := env.deposit(t, esc, esc.Sender, domain.PolicySenderOnly, 1000)
	vaultID := esc.VaultIDs[domain.AssetUSDC]

	setVaultBalance := func(balance uint64) {
		err := env.repo.VaultRepository().UpdateVault(
			ctx, vaultID, func(v *domain.Vault) (*domain.Vault, error) {
				v.Balance = balance
				return v, nil
			},
		)
		require.NoError(t, err)
	}

	setVaultBalance(999)

	_, err := env.svc.Release(ctx, lot.ID, esc.Sender, "")
	require.ErrorIs(t, err, domain.ErrInsufficientVaultBalance)

	// The transition has been rolled back.
	got, err := env.svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	require.Equal(t, domain.LotStatePendingWithdrawal, got.State)

	vault := env.vault(t, esc, domain.AssetUSDC)
	require.True(t, vault.Halted)
	require.NotEmpty(t, vault.HaltReason)
	require.Equal(t, uint64(999), vault.Balance)

	_, err = env.svc.Deposit(ctx, escrow.DepositRequest{
		EscrowID:     esc.ID,
		Depositor:    esc.Sender,
		Counterparty: esc.Receiver,
		Asset:        domain.AssetUSDC,
		Policy:       domain.PolicySenderOnly,
		Amount:       1,
	})
	require.ErrorIs(t, err, domain.ErrVaultHalted)
	_, err = env.svc.Cancel(ctx, lot.ID, esc.Sender)
	require.ErrorIs(t, err, domain.ErrVaultHalted)

	// Other vaults are unaffected.
	_, err = env.svc.Deposit(ctx, escrow.DepositRequest{
		EscrowID:     esc.ID,
		Depositor:    esc.Sender,
		Counterparty: esc.Receiver,
		Asset:        domain.AssetUSDT,
		Policy:       domain.PolicySenderOnly,
		Amount:       1,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return env.stream.count(pubsub.EventVaultHalted) == 1
	}, time.Second, 10*time.Millisecond)
}

func testFailingNotifier(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, errors.New("webhook endpoint down"))
	esc := env.openFundedEscrow(t, initialFunds)

	lot := env.deposit(t, esc, esc.Sender, domain.PolicySenderOnly, 1000)
	res, err := env.svc.Release(ctx, lot.ID, esc.Sender, "")
	require.NoError(t, err)
	require.True(t, res.IsCompleted())

	topics := make([]string, 0, 2)
	for len(topics) < 2 {
		select {
		case topic := <-env.published:
			topics = append(topics, topic)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for publish attempts")
		}
	}
	require.ElementsMatch(
		t, []string{pubsub.EventDepositCreated, pubsub.EventLotReleased}, topics,
	)

	got, err := env.svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	require.Equal(t, domain.LotStateCompleted, got.State)
}

func testListLots(t *testing.T, b backend) {
	t.Parallel()

	env := newTestEnv(t, b, nil)
	esc := env.openFundedEscrow(t, initialFunds)
	for i := 0; i < 15; i++ {
		depositor := esc.Sender
		if i%3 == 0 {
			depositor = esc.Receiver
		}
		env.deposit(t, esc, depositor, domain.PolicyDual, uint64(i+1))
	}

	lots, err := env.svc.ListLots(ctx, esc.ID, domain.LotFilter{}, domain.NewPage(0, 0))
	require.NoError(t, err)
	require.Len(t, lots, 10)
	require.Equal(t, uint64(14), lots[0].Index)

	lots, err = env.svc.ListLots(ctx, esc.ID, domain.LotFilter{}, domain.NewPage(2, 10))
	require.NoError(t, err)
	require.Len(t, lots, 5)

	received, err := env.svc.ListLots(
		ctx, esc.ID, domain.LotFilter{Depositor: esc.Receiver}, domain.NewPage(1, 100),
	)
	require.NoError(t, err)
	require.Len(t, received, 5)

	_, err = env.svc.ListLots(ctx, randomKey(), domain.LotFilter{}, domain.NewPage(1, 10))
	require.ErrorIs(t, err, domain.ErrNotFound)
}
