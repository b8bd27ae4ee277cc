package domain

import "context"

// EscrowRepository is the keyed store of escrows. AddEscrow is an
// insert-if-absent and fails with ErrEscrowAlreadyExists.
type EscrowRepository interface {
	AddEscrow(ctx context.Context, escrow *Escrow) error
	GetEscrow(ctx context.Context, id string) (*Escrow, error)
	ListEscrowsForParty(ctx context.Context, party string) ([]*Escrow, error)
	UpdateEscrow(
		ctx context.Context, id string,
		updateFn func(e *Escrow) (*Escrow, error),
	) error
}
