package inmemorymirror

import (
	"context"
	"fmt"
	"sync"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
)

type mirror struct {
	escrows map[string]ports.EscrowSnapshot
	lots    map[string]ports.LotSnapshot
	lock    *sync.RWMutex
}

// NewMirror returns a mirror kept in memory, mostly useful for tests and
// development setups.
func NewMirror() ports.Mirror {
	return &mirror{
		escrows: make(map[string]ports.EscrowSnapshot),
		lots:    make(map[string]ports.LotSnapshot),
		lock:    &sync.RWMutex{},
	}
}

func (m *mirror) UpsertEscrow(
	_ context.Context, escrow ports.EscrowSnapshot,
) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if prev, ok := m.escrows[escrow.EscrowID]; ok &&
		prev.DepositCount > escrow.DepositCount {
		return nil
	}
	m.escrows[escrow.EscrowID] = escrow
	return nil
}

// UpsertLot stores the snapshot unless a newer version is already present.
func (m *mirror) UpsertLot(_ context.Context, lot ports.LotSnapshot) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if prev, ok := m.lots[lot.LotID]; ok && prev.Version >= lot.Version {
		return nil
	}
	sigs := make([]ports.SignatureSnapshot, len(lot.Signatures))
	copy(sigs, lot.Signatures)
	lot.Signatures = sigs
	m.lots[lot.LotID] = lot
	return nil
}

func (m *mirror) GetLot(
	_ context.Context, lotID string,
) (*ports.LotSnapshot, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	lot, ok := m.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLotNotFound, lotID)
	}
	return &lot, nil
}

func (m *mirror) Close() {}
