package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	"github.com/senda-network/senda-daemon/internal/core/application/mirror"
	"github.com/senda-network/senda-daemon/internal/core/application/pubsub"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/metrics"
)

const escrowCacheSize = 1024

type Service struct {
	repoManager ports.RepoManager
	pubsub      *pubsub.Service
	mirror      *mirror.Service
	metrics     *metrics.Metrics
	network     string

	// escrows caches the immutable part of escrows (id, parties, vaults).
	escrows *lru.Cache
	locks   *escrowLocks
}

func NewService(
	repoManager ports.RepoManager,
	pubsubSvc *pubsub.Service, mirrorSvc *mirror.Service,
	m *metrics.Metrics, network string,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if mirrorSvc == nil {
		return nil, fmt.Errorf("missing mirror service")
	}
	if !domain.IsValidNetwork(network) {
		return nil, fmt.Errorf("unknown network %q", network)
	}
	if m == nil {
		m = metrics.New()
	}

	cache, err := lru.New(escrowCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to init escrow cache: %w", err)
	}

	return &Service{
		repoManager: repoManager,
		pubsub:      pubsubSvc,
		mirror:      mirrorSvc,
		metrics:     m,
		network:     network,
		escrows:     cache,
		locks:       newEscrowLocks(),
	}, nil
}

// OpenOrGetEscrow returns the escrow of the ordered pair, creating it along
// with its vaults if it does not exist yet.
func (s *Service) OpenOrGetEscrow(
	ctx context.Context, sender, receiver string,
) (*domain.Escrow, error) {
	escrow, vaults, err := domain.NewEscrow(sender, receiver, s.network)
	if err != nil {
		return nil, err
	}

	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			existing, err := s.repoManager.EscrowRepository().GetEscrow(
				ctx, escrow.ID,
			)
			if err == nil {
				return existing, nil
			}
			if !isNotFound(err) {
				return nil, err
			}

			if err := s.repoManager.EscrowRepository().AddEscrow(
				ctx, escrow,
			); err != nil {
				return nil, err
			}
			if err := s.repoManager.VaultRepository().AddVaults(
				ctx, vaults,
			); err != nil {
				return nil, err
			}
			return escrow, nil
		},
	)
	if err != nil {
		// Lost an insert race, the escrow now exists.
		if errors.Is(err, domain.ErrEscrowAlreadyExists) {
			return s.GetEscrow(ctx, escrow.ID)
		}
		return nil, err
	}

	opened := res.(*domain.Escrow)
	s.cacheEscrow(opened)
	if opened == escrow {
		log.WithField("escrow", escrow.ID).Info("opened new escrow")
		s.mirror.NotifyEscrow(escrow)
	}
	return opened, nil
}

func (s *Service) GetEscrow(
	ctx context.Context, id string,
) (*domain.Escrow, error) {
	escrow, err := s.repoManager.EscrowRepository().GetEscrow(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheEscrow(escrow)
	return escrow, nil
}

func (s *Service) ListEscrowsForParty(
	ctx context.Context, party string,
) ([]*domain.Escrow, error) {
	if err := domain.ValidatePartyKey(party); err != nil {
		return nil, err
	}
	return s.repoManager.EscrowRepository().ListEscrowsForParty(ctx, party)
}

// GetVaults returns the vaults of the escrow with the pending amount each
// one is backing.
func (s *Service) GetVaults(
	ctx context.Context, escrowID string,
) ([]VaultInfo, error) {
	res, err := s.repoManager.RunTransaction(
		ctx, true, func(ctx context.Context) (interface{}, error) {
			if _, err := s.repoManager.EscrowRepository().GetEscrow(
				ctx, escrowID,
			); err != nil {
				return nil, err
			}

			vaults, err := s.repoManager.VaultRepository().ListVaultsForEscrow(
				ctx, escrowID,
			)
			if err != nil {
				return nil, err
			}

			infos := make([]VaultInfo, 0, len(vaults))
			for _, v := range vaults {
				lots, err := s.repoManager.DepositLotRepository().
					ListPendingLotsForVault(ctx, escrowID, v.Asset)
				if err != nil {
					return nil, err
				}
				info := VaultInfo{Vault: v, PendingLots: len(lots)}
				for _, l := range lots {
					info.PendingAmount += l.Amount
				}
				infos = append(infos, info)
			}
			return infos, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res.([]VaultInfo), nil
}

func (s *Service) GetLot(
	ctx context.Context, id string,
) (*domain.DepositLot, error) {
	return s.repoManager.DepositLotRepository().GetLot(ctx, id)
}

func (s *Service) ListLots(
	ctx context.Context, escrowID string,
	filter domain.LotFilter, page domain.Page,
) ([]*domain.DepositLot, error) {
	res, err := s.repoManager.RunTransaction(
		ctx, true, func(ctx context.Context) (interface{}, error) {
			if _, err := s.repoManager.EscrowRepository().GetEscrow(
				ctx, escrowID,
			); err != nil {
				return nil, err
			}
			return s.repoManager.DepositLotRepository().ListLotsForEscrow(
				ctx, escrowID, filter, &page,
			)
		},
	)
	if err != nil {
		return nil, err
	}
	return res.([]*domain.DepositLot), nil
}

func (s *Service) GetBalances(
	ctx context.Context, owner string,
) ([]*domain.Account, error) {
	if err := domain.ValidatePartyKey(owner); err != nil {
		return nil, err
	}

	// All balances are read from the same snapshot.
	res, err := s.repoManager.RunTransaction(
		ctx, true, func(ctx context.Context) (interface{}, error) {
			balances := make([]*domain.Account, 0, len(domain.SupportedAssets))
			for _, asset := range domain.SupportedAssets {
				account, err := s.repoManager.AccountRepository().GetAccount(
					ctx, owner, asset,
				)
				if err != nil {
					return nil, err
				}
				balances = append(balances, account)
			}
			return balances, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res.([]*domain.Account), nil
}

// escrowParties returns the escrow with its immutable fields only, from cache
// if possible.
func (s *Service) escrowParties(
	ctx context.Context, id string,
) (*domain.Escrow, error) {
	if v, ok := s.escrows.Get(id); ok {
		if escrow, ok := v.(domain.Escrow); ok {
			return &escrow, nil
		}
	}

	escrow, err := s.repoManager.EscrowRepository().GetEscrow(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheEscrow(escrow)
	return escrow, nil
}

func (s *Service) cacheEscrow(escrow *domain.Escrow) {
	vaultIDs := make(map[domain.Asset]string, len(escrow.VaultIDs))
	for k, v := range escrow.VaultIDs {
		vaultIDs[k] = v
	}
	s.escrows.Add(escrow.ID, domain.Escrow{
		ID:        escrow.ID,
		Sender:    escrow.Sender,
		Receiver:  escrow.Receiver,
		VaultIDs:  vaultIDs,
		State:     escrow.State,
		CreatedAt: escrow.CreatedAt,
	})
}

// notify runs fn in background. Notifications never affect a committed
// transition.
func (s *Service) notify(event string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			log.WithError(err).Warnf("failed to publish %s event", event)
		}
	}()
}

func (s *Service) observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = domain.ErrorCode(err)
	}
	s.metrics.Transitions.WithLabelValues(operation, outcome).Inc()
	s.metrics.TxDuration.WithLabelValues(operation).
		Observe(time.Since(start).Seconds())
}
