package application

import (
	"context"

	"github.com/senda-network/senda-daemon/internal/core/application/escrow"
	"github.com/senda-network/senda-daemon/internal/core/application/mirror"
	"github.com/senda-network/senda-daemon/internal/core/application/pubsub"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/metrics"
)

type EscrowService interface {
	OpenOrGetEscrow(
		ctx context.Context, sender, receiver string,
	) (*domain.Escrow, error)
	GetEscrow(ctx context.Context, id string) (*domain.Escrow, error)
	ListEscrowsForParty(
		ctx context.Context, party string,
	) ([]*domain.Escrow, error)
	GetVaults(ctx context.Context, escrowID string) ([]escrow.VaultInfo, error)

	Deposit(
		ctx context.Context, req escrow.DepositRequest,
	) (*domain.DepositLot, error)
	Release(
		ctx context.Context, lotID, requester, coSigner string,
	) (*escrow.ReleaseResult, error)
	Cancel(
		ctx context.Context, lotID, requester string,
	) (*domain.DepositLot, error)

	GetLot(ctx context.Context, id string) (*domain.DepositLot, error)
	ListLots(
		ctx context.Context, escrowID string,
		filter domain.LotFilter, page domain.Page,
	) ([]*domain.DepositLot, error)
	GetBalances(ctx context.Context, owner string) ([]*domain.Account, error)
}

func NewEscrowService(
	repoManager ports.RepoManager,
	pubsubSvc PubSubService, mirrorSvc MirrorService,
	m *metrics.Metrics, network string,
) (EscrowService, error) {
	p := pubsubSvc.(*pubsub.Service)
	ms := mirrorSvc.(*mirror.Service)
	return escrow.NewService(repoManager, p, ms, m, network)
}
