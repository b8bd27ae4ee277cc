package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrDuplicateLot is returned when a discriminator is already bound to a lot.
	ErrDuplicateLot = errors.New("deposit lot already exists")
	// ErrInvalidState is returned when a lot is not in the state an operation
	// requires.
	ErrInvalidState = errors.New("invalid lot state")
	// ErrNotAuthorized is returned when the requester cannot perform the action.
	ErrNotAuthorized = errors.New("requester not authorized")
	// ErrInsufficientVaultBalance means the vault cannot cover a lot it is
	// supposed to back. The vault accounting is inconsistent.
	ErrInsufficientVaultBalance = errors.New("insufficient vault balance")
	// ErrEscrowAlreadyExists is returned when creating an escrow for a pair
	// that already has one.
	ErrEscrowAlreadyExists = errors.New("escrow already exists")
	// ErrInvalidParties is returned when the given parties do not match the
	// escrow sender and receiver.
	ErrInvalidParties = errors.New("invalid parties")
	// ErrInvalidPartyKey ...
	ErrInvalidPartyKey = errors.New("party key must be a base58 encoded 32-byte key")
	// ErrInvalidDiscriminator is returned when the expected lot index is ahead
	// of the escrow deposit counter.
	ErrInvalidDiscriminator = errors.New("discriminator does not match deposit count")
	// ErrInsufficientFunds is returned when a party account cannot cover a
	// deposit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrVaultHalted is returned for any mutation of a halted vault.
	ErrVaultHalted = errors.New("vault is halted pending reconciliation")
	// ErrVaultNotHalted ...
	ErrVaultNotHalted = errors.New("vault is not halted")
	// ErrVaultInconsistent is returned by reconciliation when the vault balance
	// still does not match the pending lots.
	ErrVaultInconsistent = errors.New("vault balance does not match pending lots")
	// ErrAssetMismatch ...
	ErrAssetMismatch = errors.New("lot asset does not match vault asset")
	// ErrNotFound ...
	ErrNotFound = errors.New("not found")
	// ErrEscrowNotFound ...
	ErrEscrowNotFound = fmt.Errorf("escrow %w", ErrNotFound)
	// ErrLotNotFound ...
	ErrLotNotFound = fmt.Errorf("deposit lot %w", ErrNotFound)
	// ErrVaultNotFound ...
	ErrVaultNotFound = fmt.Errorf("vault %w", ErrNotFound)
	// ErrEscrowClosed ...
	ErrEscrowClosed = errors.New("escrow is closed")
	// ErrInvalidPolicy ...
	ErrInvalidPolicy = errors.New("invalid signature policy")
	// ErrInvalidAsset ...
	ErrInvalidAsset = errors.New("unsupported asset")
	// ErrBalanceOverflow is returned when a credit would overflow a vault or
	// account balance.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrTxConflict is returned when a unit of work keeps conflicting with
	// concurrent ones. Nothing has been committed and the request can be
	// retried.
	ErrTxConflict = errors.New("concurrent update conflict, retry later")
)

// LotError carries the lot id and the expected and actual state along with
// the error kind. It unwraps to the kind, so errors.Is works on it.
type LotError struct {
	Kind     error
	LotID    string
	Expected LotState
	Actual   LotState
}

func (e *LotError) Error() string {
	if e.Expected != LotStateUnspecified {
		return fmt.Sprintf(
			"lot %s: %s: expected %s, got %s", e.LotID, e.Kind, e.Expected, e.Actual,
		)
	}
	return fmt.Sprintf("lot %s: %s", e.LotID, e.Kind)
}

func (e *LotError) Unwrap() error {
	return e.Kind
}

func newLotError(kind error, lot *DepositLot) *LotError {
	return &LotError{Kind: kind, LotID: lot.ID, Actual: lot.State}
}

func newInvalidStateError(lot *DepositLot, expected LotState) *LotError {
	return &LotError{
		Kind:     ErrInvalidState,
		LotID:    lot.ID,
		Expected: expected,
		Actual:   lot.State,
	}
}

// ErrorCode returns a stable code for the kind of err, or INTERNAL for errors
// outside the taxonomy.
func ErrorCode(err error) string {
	for _, k := range errorCodes {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "INTERNAL"
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrDuplicateLot, "DUPLICATE_LOT"},
	{ErrInvalidState, "INVALID_STATE"},
	{ErrNotAuthorized, "NOT_AUTHORIZED"},
	{ErrInsufficientVaultBalance, "INSUFFICIENT_VAULT_BALANCE"},
	{ErrEscrowAlreadyExists, "ESCROW_ALREADY_EXISTS"},
	{ErrInvalidParties, "INVALID_PARTIES"},
	{ErrInvalidPartyKey, "INVALID_PARTIES"},
	{ErrInvalidDiscriminator, "INVALID_DISCRIMINATOR"},
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS"},
	{ErrVaultHalted, "VAULT_HALTED"},
	{ErrVaultNotHalted, "VAULT_NOT_HALTED"},
	{ErrVaultInconsistent, "VAULT_INCONSISTENT"},
	{ErrAssetMismatch, "INVALID_ASSET"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrEscrowClosed, "ESCROW_CLOSED"},
	{ErrInvalidPolicy, "INVALID_POLICY"},
	{ErrInvalidAsset, "INVALID_ASSET"},
	{ErrBalanceOverflow, "BALANCE_OVERFLOW"},
	{ErrTxConflict, "TX_CONFLICT"},
}
