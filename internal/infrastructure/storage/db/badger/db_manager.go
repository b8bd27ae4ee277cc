package dbbadger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

type contextKey string

const (
	txKey contextKey = "tx"

	defaultMaxTxRetries = 10
	minRetryDelay       = 5 * time.Millisecond
	maxRetryDelay       = 500 * time.Millisecond
	gcInterval          = 5 * time.Minute
	gcDiscardRatio      = 0.5
)

type repoManager struct {
	store      *badgerhold.Store
	maxRetries int
	stopGC     chan struct{}

	escrowRepository  domain.EscrowRepository
	lotRepository     domain.DepositLotRepository
	vaultRepository   domain.VaultRepository
	accountRepository domain.AccountRepository
}

// NewRepoManager opens (or creates if not exists) the badger store in
// baseDbDir. An empty baseDbDir opens an in-memory store. Transactions
// failing with a conflict are retried up to maxTxRetries times.
func NewRepoManager(
	baseDbDir string, logger badger.Logger, maxTxRetries int,
) (ports.RepoManager, error) {
	store, err := createDb(baseDbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening escrow db: %w", err)
	}

	if maxTxRetries <= 0 {
		maxTxRetries = defaultMaxTxRetries
	}

	rm := &repoManager{
		store:             store,
		maxRetries:        maxTxRetries,
		stopGC:            make(chan struct{}),
		escrowRepository:  NewEscrowRepositoryImpl(store),
		lotRepository:     NewDepositLotRepositoryImpl(store),
		vaultRepository:   NewVaultRepositoryImpl(store),
		accountRepository: NewAccountRepositoryImpl(store),
	}

	if len(baseDbDir) > 0 {
		go rm.runValueLogGC()
	}
	return rm, nil
}

func (r *repoManager) EscrowRepository() domain.EscrowRepository {
	return r.escrowRepository
}

func (r *repoManager) DepositLotRepository() domain.DepositLotRepository {
	return r.lotRepository
}

func (r *repoManager) VaultRepository() domain.VaultRepository {
	return r.vaultRepository
}

func (r *repoManager) AccountRepository() domain.AccountRepository {
	return r.accountRepository
}

func (r *repoManager) Close() {
	close(r.stopGC)
	r.store.Close()
}

// RunTransaction runs handler within a badger transaction carried by the
// context. Badger detects conflicting concurrent writes at commit time, in
// which case the whole handler is executed again on a fresh transaction
// after a jittered exponential delay. Once retries are exhausted the error
// is domain.ErrTxConflict.
func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if _, ok := ctx.Value(txKey).(*badger.Txn); ok {
		return handler(ctx)
	}

	for attempt := 0; ; attempt++ {
		tx := r.store.Badger().NewTransaction(!readOnly)
		res, err := handler(context.WithValue(ctx, txKey, tx))
		if err != nil {
			tx.Discard()
			return nil, err
		}

		if readOnly {
			tx.Discard()
			return res, nil
		}

		if err := tx.Commit(); err != nil {
			if !errors.Is(err, badger.ErrConflict) {
				return nil, err
			}
			if attempt >= r.maxRetries {
				return nil, fmt.Errorf("%w: %s", domain.ErrTxConflict, err)
			}

			delay := retryDelay(attempt)
			log.Debugf(
				"db tx conflict, retrying in %s (attempt %d)", delay, attempt+1,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		return res, nil
	}
}

// retryDelay returns a random delay in [d/2, d) with d doubling at every
// attempt, capped to maxRetryDelay.
func retryDelay(attempt int) time.Duration {
	d := maxRetryDelay
	if attempt < 16 {
		if exp := minRetryDelay << uint(attempt); exp < maxRetryDelay {
			d = exp
		}
	}
	half := int64(d / 2)
	//nolint
	return time.Duration(half + rand.Int63n(half))
}

func (r *repoManager) runValueLogGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopGC:
			return
		case <-ticker.C:
			for {
				if err := r.store.Badger().RunValueLogGC(gcDiscardRatio); err != nil {
					break
				}
			}
		}
	}
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

func txFromContext(ctx context.Context) *badger.Txn {
	tx, _ := ctx.Value(txKey).(*badger.Txn)
	return tx
}
