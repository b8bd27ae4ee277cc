package application

import (
	"context"

	"github.com/senda-network/senda-daemon/internal/core/application/operator"
	"github.com/senda-network/senda-daemon/internal/core/application/pubsub"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/metrics"
)

type OperatorService interface {
	FundAccount(
		ctx context.Context, owner string, asset domain.Asset, amount uint64,
	) (*domain.Account, error)
	ReconcileVault(ctx context.Context, vaultID string) (*domain.Vault, error)

	AddWebhook(
		ctx context.Context, event, endpoint, secret string,
	) (string, error)
	RemoveWebhook(ctx context.Context, id string) error
	ListWebhooks(ctx context.Context, event string) ([]ports.Subscription, error)
}

func NewOperatorService(
	repoManager ports.RepoManager, pubsubSvc PubSubService, m *metrics.Metrics,
) (OperatorService, error) {
	p := pubsubSvc.(*pubsub.Service)
	return operator.NewService(repoManager, p, m)
}
