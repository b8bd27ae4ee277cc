package ports

import (
	"context"

	"github.com/senda-network/senda-daemon/internal/core/domain"
)

// Mirror is the off-chain read copy of core state used for display. It may
// receive the same snapshot more than once and out of order, and must keep
// the one with the highest version.
type Mirror interface {
	UpsertEscrow(ctx context.Context, escrow EscrowSnapshot) error
	UpsertLot(ctx context.Context, lot LotSnapshot) error
	GetLot(ctx context.Context, lotID string) (*LotSnapshot, error)
	Close()
}

type EscrowSnapshot struct {
	EscrowID     string
	Sender       string
	Receiver     string
	DepositCount uint64
	State        string
	CreatedAt    int64
}

type SignatureSnapshot struct {
	Signer    string `json:"signer"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

type LotSnapshot struct {
	EscrowID     string
	LotID        string
	Index        uint64
	Depositor    string
	Counterparty string
	Amount       uint64
	Asset        string
	Policy       string
	State        string
	Signatures   []SignatureSnapshot
	Version      uint64
	UpdatedAt    int64
}

func NewEscrowSnapshot(e *domain.Escrow) EscrowSnapshot {
	return EscrowSnapshot{
		EscrowID:     e.ID,
		Sender:       e.Sender,
		Receiver:     e.Receiver,
		DepositCount: e.DepositCount,
		State:        e.State.String(),
		CreatedAt:    e.CreatedAt,
	}
}

func NewLotSnapshot(l *domain.DepositLot) LotSnapshot {
	sigs := make([]SignatureSnapshot, 0, len(l.Signatures))
	for _, s := range l.Signatures {
		sigs = append(sigs, SignatureSnapshot{
			Signer:    s.Signer,
			Role:      s.Role.String(),
			Status:    s.Status.String(),
			Timestamp: s.Timestamp,
		})
	}
	return LotSnapshot{
		EscrowID:     l.EscrowID,
		LotID:        l.ID,
		Index:        l.Index,
		Depositor:    l.Depositor,
		Counterparty: l.Counterparty,
		Amount:       l.Amount,
		Asset:        l.Asset.String(),
		Policy:       l.Policy.String(),
		State:        l.State.String(),
		Signatures:   sigs,
		Version:      l.Version,
		UpdatedAt:    l.UpdatedAt,
	}
}
