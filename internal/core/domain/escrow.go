package domain

import (
	"fmt"
	"time"
)

// Escrow is the custody relationship between one sender and one receiver.
// It holds one vault per supported asset and counts every lot ever created.
type Escrow struct {
	ID           string
	Sender       string
	Receiver     string
	VaultIDs     map[Asset]string
	DepositCount uint64
	// DepositedTotal sums every amount ever deposited per asset. It is never
	// decremented.
	DepositedTotal map[Asset]uint64
	State          EscrowState
	CreatedAt      int64
}

// NewEscrow returns a new active escrow for the ordered pair, along with its
// empty vaults.
func NewEscrow(sender, receiver, network string) (*Escrow, []*Vault, error) {
	if err := ValidatePartyKey(sender); err != nil {
		return nil, nil, fmt.Errorf("sender: %w", err)
	}
	if err := ValidatePartyKey(receiver); err != nil {
		return nil, nil, fmt.Errorf("receiver: %w", err)
	}
	if sender == receiver {
		return nil, nil, fmt.Errorf(
			"%w: sender and receiver must differ", ErrInvalidParties,
		)
	}
	if !IsValidNetwork(network) {
		return nil, nil, fmt.Errorf("unknown network %q", network)
	}

	id := DeriveEscrowID(sender, receiver)
	vaultIDs := make(map[Asset]string, len(SupportedAssets))
	vaults := make([]*Vault, 0, len(SupportedAssets))
	for _, asset := range SupportedAssets {
		vault := NewVault(id, asset, network)
		vaultIDs[asset] = vault.ID
		vaults = append(vaults, vault)
	}

	return &Escrow{
		ID:             id,
		Sender:         sender,
		Receiver:       receiver,
		VaultIDs:       vaultIDs,
		DepositedTotal: make(map[Asset]uint64, len(SupportedAssets)),
		State:          EscrowStateActive,
		CreatedAt:      time.Now().Unix(),
	}, vaults, nil
}

func (e *Escrow) IsActive() bool {
	return e.State == EscrowStateActive
}

// RoleOf returns the role key plays in the escrow, or RoleNone.
func (e *Escrow) RoleOf(key string) Role {
	switch key {
	case e.Sender:
		return RoleSender
	case e.Receiver:
		return RoleReceiver
	default:
		return RoleNone
	}
}

func (e *Escrow) IsParty(key string) bool {
	return e.RoleOf(key) != RoleNone
}

// Counterparty returns the other party of the escrow, or an empty string if
// key is not a party.
func (e *Escrow) Counterparty(key string) string {
	switch key {
	case e.Sender:
		return e.Receiver
	case e.Receiver:
		return e.Sender
	default:
		return ""
	}
}

// KeyOf returns the key of the party playing role.
func (e *Escrow) KeyOf(role Role) string {
	switch role {
	case RoleSender:
		return e.Sender
	case RoleReceiver:
		return e.Receiver
	default:
		return ""
	}
}

// VaultID returns the id of the vault for asset.
func (e *Escrow) VaultID(asset Asset) (string, error) {
	id, ok := e.VaultIDs[asset]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidAsset, asset)
	}
	return id, nil
}

// ValidateDeposit checks the parties of a deposit against the escrow: the
// depositor must be one of the parties and the counterparty the other one.
func (e *Escrow) ValidateDeposit(depositor, counterparty string) error {
	if !e.IsActive() {
		return ErrEscrowClosed
	}
	if !e.IsParty(depositor) {
		return fmt.Errorf("%w: depositor is not a party", ErrInvalidParties)
	}
	if e.Counterparty(depositor) != counterparty {
		return fmt.Errorf(
			"%w: counterparty must be the other party", ErrInvalidParties,
		)
	}
	return nil
}

// BindNextIndex reserves the next discriminator and increments the deposit
// count. If expected is not nil it must match the current count: a lower
// value is already bound to a lot.
func (e *Escrow) BindNextIndex(expected *uint64) (uint64, error) {
	index := e.DepositCount
	if expected != nil {
		if *expected < index {
			return 0, fmt.Errorf(
				"%w: index %d already bound", ErrDuplicateLot, *expected,
			)
		}
		if *expected > index {
			return 0, fmt.Errorf(
				"%w: expected %d, deposit count is %d",
				ErrInvalidDiscriminator, *expected, index,
			)
		}
	}
	e.DepositCount++
	return index, nil
}

// AddDeposited updates the lifetime deposit totals.
func (e *Escrow) AddDeposited(asset Asset, amount uint64) {
	if e.DepositedTotal == nil {
		e.DepositedTotal = make(map[Asset]uint64)
	}
	e.DepositedTotal[asset] += amount
}
