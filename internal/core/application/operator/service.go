package operator

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/senda-network/senda-daemon/internal/core/application/pubsub"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/metrics"
)

type Service struct {
	repoManager ports.RepoManager
	pubsub      *pubsub.Service
	metrics     *metrics.Metrics
}

func NewService(
	repoManager ports.RepoManager, pubsubSvc *pubsub.Service,
	m *metrics.Metrics,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if m == nil {
		m = metrics.New()
	}
	return &Service{repoManager, pubsubSvc, m}, nil
}

// FundAccount credits amount to the account of owner. It stands in for the
// token wallet the parties deposit from.
func (s *Service) FundAccount(
	ctx context.Context, owner string, asset domain.Asset, amount uint64,
) (*domain.Account, error) {
	if err := domain.ValidatePartyKey(owner); err != nil {
		return nil, err
	}
	if !asset.IsValid() {
		return nil, domain.ErrInvalidAsset
	}

	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			var account *domain.Account
			if err := s.repoManager.AccountRepository().UpdateAccount(
				ctx, owner, asset,
				func(a *domain.Account) (*domain.Account, error) {
					if err := a.Credit(amount); err != nil {
						return nil, err
					}
					account = a
					return a, nil
				},
			); err != nil {
				return nil, err
			}
			return account, nil
		},
	)
	if err != nil {
		return nil, err
	}
	account := res.(*domain.Account)

	log.WithField("owner", owner).Infof("funded account with %d %s", amount, asset)
	return account, nil
}

// ReconcileVault unhalts the vault if its balance matches again the sum of
// the amounts of its pending lots. It returns the reconciled vault.
func (s *Service) ReconcileVault(
	ctx context.Context, vaultID string,
) (*domain.Vault, error) {
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			vault, err := s.repoManager.VaultRepository().GetVault(ctx, vaultID)
			if err != nil {
				return nil, err
			}

			lots, err := s.repoManager.DepositLotRepository().
				ListPendingLotsForVault(ctx, vault.EscrowID, vault.Asset)
			if err != nil {
				return nil, err
			}
			var pending uint64
			for _, l := range lots {
				pending += l.Amount
			}

			var reconciled *domain.Vault
			if err := s.repoManager.VaultRepository().UpdateVault(
				ctx, vaultID, func(v *domain.Vault) (*domain.Vault, error) {
					if err := v.Reconcile(pending); err != nil {
						return nil, err
					}
					reconciled = v
					return v, nil
				},
			); err != nil {
				return nil, err
			}
			return reconciled, nil
		},
	)
	if err != nil {
		return nil, err
	}

	vault := res.(*domain.Vault)
	s.metrics.HaltedVaults.Dec()
	log.WithField("vault", vault.ID).Info("vault reconciled")
	return vault, nil
}
