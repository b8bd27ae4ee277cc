package domain

import (
	"fmt"
	"time"
)

// Signature is one entry of the signer log of a lot. There is at most one
// entry per role.
type Signature struct {
	Signer    string
	Role      Role
	Status    SignatureStatus
	Timestamp int64
}

// DepositLot is the accounting record of one deposit within a pooled vault.
type DepositLot struct {
	ID           string
	EscrowID     string
	Index        uint64
	Depositor    string
	Counterparty string
	Amount       uint64
	Asset        Asset
	Policy       Policy
	State        LotState
	Signatures   []Signature
	// Version is bumped by every committed mutation.
	Version   uint64
	CreatedAt int64
	UpdatedAt int64
}

// NewDepositLot returns a lot in PendingWithdrawal bound to index, with the
// depositor signature already recorded. For the dual policy the counterparty
// entry is added as pending.
func NewDepositLot(
	escrow *Escrow, index uint64,
	depositor, counterparty string,
	asset Asset, policy Policy, amount uint64,
) (*DepositLot, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !asset.IsValid() {
		return nil, ErrInvalidAsset
	}
	if !policy.IsValid() {
		return nil, ErrInvalidPolicy
	}
	if err := escrow.ValidateDeposit(depositor, counterparty); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	lot := &DepositLot{
		ID:           DeriveLotID(escrow.ID, index),
		EscrowID:     escrow.ID,
		Index:        index,
		Depositor:    depositor,
		Counterparty: counterparty,
		Amount:       amount,
		Asset:        asset,
		Policy:       policy,
		State:        LotStatePendingWithdrawal,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	lot.Signatures = append(lot.Signatures, Signature{
		Signer:    depositor,
		Role:      escrow.RoleOf(depositor),
		Status:    SignatureSigned,
		Timestamp: now,
	})
	if policy == PolicyDual {
		lot.Signatures = append(lot.Signatures, Signature{
			Signer: counterparty,
			Role:   escrow.RoleOf(counterparty),
			Status: SignaturePending,
		})
	}
	return lot, nil
}

func (l *DepositLot) IsPending() bool {
	return l.State == LotStatePendingWithdrawal
}

// RecordSignature records signer as signed for role. An existing entry for
// the same role is overwritten.
func (l *DepositLot) RecordSignature(signer string, role Role) error {
	if !l.IsPending() {
		return newInvalidStateError(l, LotStatePendingWithdrawal)
	}
	if role == RoleNone {
		return newLotError(ErrNotAuthorized, l)
	}

	sig := Signature{
		Signer:    signer,
		Role:      role,
		Status:    SignatureSigned,
		Timestamp: time.Now().Unix(),
	}
	for i := range l.Signatures {
		if l.Signatures[i].Role == role {
			l.Signatures[i] = sig
			l.touch()
			return nil
		}
	}
	l.Signatures = append(l.Signatures, sig)
	l.touch()
	return nil
}

// IsSigned returns whether role has a signed entry.
func (l *DepositLot) IsSigned(role Role) bool {
	for _, s := range l.Signatures {
		if s.Role == role && s.Status == SignatureSigned {
			return true
		}
	}
	return false
}

// SignedRoles returns the roles with a signed entry, sender first.
func (l *DepositLot) SignedRoles() []Role {
	roles := make([]Role, 0, 2)
	for _, r := range []Role{RoleSender, RoleReceiver} {
		if l.IsSigned(r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// Complete moves the lot to Completed.
func (l *DepositLot) Complete() error {
	return l.transition(LotStateCompleted)
}

// Cancel moves the lot to Cancelled.
func (l *DepositLot) Cancel() error {
	return l.transition(LotStateCancelled)
}

func (l *DepositLot) transition(target LotState) error {
	if !l.IsPending() {
		return newInvalidStateError(l, LotStatePendingWithdrawal)
	}
	if !target.IsFinal() {
		return fmt.Errorf(
			"%w: cannot move lot %s to %s", ErrInvalidState, l.ID, target,
		)
	}
	l.State = target
	l.touch()
	return nil
}

func (l *DepositLot) touch() {
	l.Version++
	l.UpdatedAt = time.Now().Unix()
}
