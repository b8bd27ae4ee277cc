package application

import (
	"github.com/senda-network/senda-daemon/internal/core/application/mirror"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/metrics"
)

type MirrorService interface {
	Start()
	Stop()
	IsEnabled() bool
	NotifyEscrow(escrow *domain.Escrow)
	NotifyLot(lot *domain.DepositLot)
}

func NewMirrorService(
	m ports.Mirror, mt *metrics.Metrics, rateLimit, maxRetries int,
) MirrorService {
	return mirror.NewService(m, mt, rateLimit, maxRetries)
}
