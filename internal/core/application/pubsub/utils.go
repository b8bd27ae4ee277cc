package pubsub

import (
	"errors"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrPubSubDisabled = errors.New("webhook notifications are disabled")
	ErrInvalidEvent   = errors.New("unknown event")
)

// formatAmount renders an amount in smallest units with the stablecoin
// precision, ie. 500000 -> "0.500000".
func formatAmount(amount uint64) string {
	return decimal.New(int64(amount), -domain.StablecoinDecimals).
		StringFixed(domain.StablecoinDecimals)
}

func getEscrowPayload(escrow *domain.Escrow) map[string]interface{} {
	return map[string]interface{}{
		"id":            escrow.ID,
		"sender":        escrow.Sender,
		"receiver":      escrow.Receiver,
		"deposit_count": escrow.DepositCount,
	}
}

func getLotPayload(lot *domain.DepositLot) map[string]interface{} {
	sigs := make([]map[string]interface{}, 0, len(lot.Signatures))
	for _, s := range lot.Signatures {
		sigs = append(sigs, map[string]interface{}{
			"signer":    s.Signer,
			"role":      s.Role.String(),
			"status":    s.Status.String(),
			"timestamp": s.Timestamp,
		})
	}
	return map[string]interface{}{
		"id":           lot.ID,
		"escrow_id":    lot.EscrowID,
		"index":        lot.Index,
		"depositor":    lot.Depositor,
		"counterparty": lot.Counterparty,
		"amount":       formatAmount(lot.Amount),
		"asset":        lot.Asset.String(),
		"policy":       lot.Policy.String(),
		"state":        lot.State.String(),
		"signatures":   sigs,
		"version":      lot.Version,
	}
}
