package domain

import "context"

// DepositLotRepository is the ledger of deposit lots. AddLot is an
// insert-if-absent on the lot id and fails with ErrDuplicateLot.
type DepositLotRepository interface {
	AddLot(ctx context.Context, lot *DepositLot) error
	GetLot(ctx context.Context, id string) (*DepositLot, error)
	// ListLotsForEscrow returns the lots of the escrow matching filter,
	// newest first. A nil page returns all of them.
	ListLotsForEscrow(
		ctx context.Context, escrowID string, filter LotFilter, page *Page,
	) ([]*DepositLot, error)
	// ListPendingLotsForVault returns the lots in PendingWithdrawal backed by
	// the vault of asset in the escrow.
	ListPendingLotsForVault(
		ctx context.Context, escrowID string, asset Asset,
	) ([]*DepositLot, error)
	UpdateLot(
		ctx context.Context, id string,
		updateFn func(l *DepositLot) (*DepositLot, error),
	) error
}
