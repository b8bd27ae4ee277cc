package application

import (
	"github.com/senda-network/senda-daemon/internal/core/application/pubsub"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
)

type PubSubService interface {
	PublishDepositCreated(escrow *domain.Escrow, lot *domain.DepositLot) error
	PublishSignatureRecorded(
		lot *domain.DepositLot, missingRoles []domain.Role,
	) error
	PublishLotReleased(lot *domain.DepositLot, destination string) error
	PublishLotCancelled(lot *domain.DepositLot) error
	PublishVaultHalted(vault *domain.Vault, lotID string) error
	Close()
}

func NewPubSubService(
	pubsubSvc ports.PubSub, stream ports.EventStream,
) PubSubService {
	return pubsub.NewService(pubsubSvc, stream)
}
