package escrow

import "github.com/senda-network/senda-daemon/internal/core/domain"

// DepositRequest is the input of a deposit. ExpectedIndex is optional: when
// given it must match the discriminator the lot is going to be bound to.
type DepositRequest struct {
	EscrowID      string
	Depositor     string
	Counterparty  string
	Asset         domain.Asset
	Policy        domain.Policy
	Amount        uint64
	ExpectedIndex *uint64
}

// ReleaseResult is the outcome of a release request. Lot is the lot as
// committed. Destination is set only if the lot has been completed.
type ReleaseResult struct {
	Lot          *domain.DepositLot
	Outcome      domain.Outcome
	MissingRoles []domain.Role
	Destination  string
}

func (r ReleaseResult) IsCompleted() bool {
	return r.Outcome == domain.OutcomeApproved
}

// VaultInfo is a vault along with the sum of the amounts of its pending
// lots.
type VaultInfo struct {
	*domain.Vault
	PendingAmount uint64
	PendingLots   int
}

func (v VaultInfo) IsConsistent() bool {
	return v.Balance == v.PendingAmount
}
