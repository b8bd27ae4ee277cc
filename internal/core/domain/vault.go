package domain

import (
	"fmt"
	"math"
)

// Vault is the pooled custody account of one asset within one escrow. Its
// balance is logically partitioned by the amounts of the pending lots that
// reference it.
type Vault struct {
	ID         string
	EscrowID   string
	Asset      Asset
	Balance    uint64
	Halted     bool
	HaltReason string
}

func NewVault(escrowID string, asset Asset, network string) *Vault {
	return &Vault{
		ID:       DeriveVaultID(escrowID, asset, network),
		EscrowID: escrowID,
		Asset:    asset,
	}
}

// Credit adds amount to the vault balance.
func (v *Vault) Credit(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if v.Halted {
		return ErrVaultHalted
	}
	if v.Balance > math.MaxUint64-amount {
		return fmt.Errorf(
			"%w: vault %s balance %d, credit %d",
			ErrBalanceOverflow, v.ID, v.Balance, amount,
		)
	}
	v.Balance += amount
	return nil
}

// DebitExact removes exactly the lot amount from the vault. A balance lower
// than the lot amount means the accounting invariant has been broken and
// ErrInsufficientVaultBalance is returned.
func (v *Vault) DebitExact(lot *DepositLot) error {
	if v.Halted {
		return ErrVaultHalted
	}
	if lot.Asset != v.Asset {
		return newLotError(ErrAssetMismatch, lot)
	}
	if v.Balance < lot.Amount {
		return &LotError{Kind: ErrInsufficientVaultBalance, LotID: lot.ID, Actual: lot.State}
	}
	v.Balance -= lot.Amount
	return nil
}

// Halt stops every further mutation of the vault until reconciled.
func (v *Vault) Halt(reason string) {
	v.Halted = true
	v.HaltReason = reason
}

// Reconcile unhalts the vault if its balance equals the sum of the given
// pending amounts.
func (v *Vault) Reconcile(pending uint64) error {
	if !v.Halted {
		return ErrVaultNotHalted
	}
	if v.Balance != pending {
		return fmt.Errorf(
			"%w: balance %d, pending %d", ErrVaultInconsistent, v.Balance, pending,
		)
	}
	v.Halted = false
	v.HaltReason = ""
	return nil
}

// Account holds the tokens of one party for one asset outside any escrow.
type Account struct {
	Owner   string
	Asset   Asset
	Balance uint64
}

// AccountKey ...
func AccountKey(owner string, asset Asset) string {
	return fmt.Sprintf("%s:%s", owner, asset)
}

func (a *Account) Key() string {
	return AccountKey(a.Owner, a.Asset)
}

func (a *Account) Credit(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if a.Balance > math.MaxUint64-amount {
		return fmt.Errorf(
			"%w: balance %d, credit %d", ErrBalanceOverflow, a.Balance, amount,
		)
	}
	a.Balance += amount
	return nil
}

func (a *Account) Debit(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if a.Balance < amount {
		return fmt.Errorf(
			"%w: balance %d, requested %d", ErrInsufficientFunds, a.Balance, amount,
		)
	}
	a.Balance -= amount
	return nil
}
