package inmemory

import (
	"context"
	"sync"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
)

type contextKey string

const txKey contextKey = "tx"

// store holds every record. Values are deep copied in and out so that
// callers never share memory with it.
type store struct {
	escrows  map[string]domain.Escrow
	lots     map[string]domain.DepositLot
	vaults   map[string]domain.Vault
	accounts map[string]domain.Account

	// txLock is held exclusively by write units of work for their whole
	// duration, so reads never see uncommitted changes. lock protects the
	// maps.
	txLock *sync.RWMutex
	lock   *sync.RWMutex
}

func newStore() *store {
	return &store{
		escrows:  map[string]domain.Escrow{},
		lots:     map[string]domain.DepositLot{},
		vaults:   map[string]domain.Vault{},
		accounts: map[string]domain.Account{},
		txLock:   &sync.RWMutex{},
		lock:     &sync.RWMutex{},
	}
}

type snapshot struct {
	escrows  map[string]domain.Escrow
	lots     map[string]domain.DepositLot
	vaults   map[string]domain.Vault
	accounts map[string]domain.Account
}

func (s *store) snapshot() snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()

	snap := snapshot{
		escrows:  make(map[string]domain.Escrow, len(s.escrows)),
		lots:     make(map[string]domain.DepositLot, len(s.lots)),
		vaults:   make(map[string]domain.Vault, len(s.vaults)),
		accounts: make(map[string]domain.Account, len(s.accounts)),
	}
	for k, v := range s.escrows {
		snap.escrows[k] = cloneEscrow(v)
	}
	for k, v := range s.lots {
		snap.lots[k] = cloneLot(v)
	}
	for k, v := range s.vaults {
		snap.vaults[k] = v
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.escrows = snap.escrows
	s.lots = snap.lots
	s.vaults = snap.vaults
	s.accounts = snap.accounts
}

// exclusive runs fn holding the unit-of-work lock unless ctx already
// belongs to a running transaction.
func (s *store) exclusive(ctx context.Context, fn func() error) error {
	if ctx.Value(txKey) == nil {
		s.txLock.Lock()
		defer s.txLock.Unlock()
	}
	return fn()
}

// shared acquires the unit-of-work lock for reading unless ctx already
// belongs to a running transaction, and returns the func releasing it.
func (s *store) shared(ctx context.Context) func() {
	if ctx.Value(txKey) != nil {
		return func() {}
	}
	s.txLock.RLock()
	return s.txLock.RUnlock
}

type RepoManager struct {
	store *store

	escrowRepository  domain.EscrowRepository
	lotRepository     domain.DepositLotRepository
	vaultRepository   domain.VaultRepository
	accountRepository domain.AccountRepository
}

func NewRepoManager() ports.RepoManager {
	s := newStore()
	return &RepoManager{
		store:             s,
		escrowRepository:  NewEscrowRepositoryImpl(s),
		lotRepository:     NewDepositLotRepositoryImpl(s),
		vaultRepository:   NewVaultRepositoryImpl(s),
		accountRepository: NewAccountRepositoryImpl(s),
	}
}

func (r *RepoManager) EscrowRepository() domain.EscrowRepository {
	return r.escrowRepository
}

func (r *RepoManager) DepositLotRepository() domain.DepositLotRepository {
	return r.lotRepository
}

func (r *RepoManager) VaultRepository() domain.VaultRepository {
	return r.vaultRepository
}

func (r *RepoManager) AccountRepository() domain.AccountRepository {
	return r.accountRepository
}

// RunTransaction serializes write units of work, read-only ones run
// concurrently with each other. If handler fails every change it made is
// rolled back before any reader can see it.
func (r *RepoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if ctx.Value(txKey) != nil {
		return handler(ctx)
	}

	txCtx := context.WithValue(ctx, txKey, struct{}{})
	if readOnly {
		r.store.txLock.RLock()
		defer r.store.txLock.RUnlock()
		return handler(txCtx)
	}

	r.store.txLock.Lock()
	defer r.store.txLock.Unlock()

	snap := r.store.snapshot()
	res, err := handler(txCtx)
	if err != nil {
		r.store.restore(snap)
		return nil, err
	}
	return res, nil
}

func (r *RepoManager) Close() {}

func cloneEscrow(e domain.Escrow) domain.Escrow {
	vaultIDs := make(map[domain.Asset]string, len(e.VaultIDs))
	for k, v := range e.VaultIDs {
		vaultIDs[k] = v
	}
	totals := make(map[domain.Asset]uint64, len(e.DepositedTotal))
	for k, v := range e.DepositedTotal {
		totals[k] = v
	}
	e.VaultIDs = vaultIDs
	e.DepositedTotal = totals
	return e
}

func cloneLot(l domain.DepositLot) domain.DepositLot {
	sigs := make([]domain.Signature, len(l.Signatures))
	copy(sigs, l.Signatures)
	l.Signatures = sigs
	return l
}
