package domain

import "context"

type VaultRepository interface {
	AddVaults(ctx context.Context, vaults []*Vault) error
	GetVault(ctx context.Context, id string) (*Vault, error)
	ListVaultsForEscrow(ctx context.Context, escrowID string) ([]*Vault, error)
	UpdateVault(
		ctx context.Context, id string,
		updateFn func(v *Vault) (*Vault, error),
	) error
}

// AccountRepository stores party holdings. Missing accounts read as empty.
type AccountRepository interface {
	GetAccount(ctx context.Context, owner string, asset Asset) (*Account, error)
	ListAccountsForOwner(ctx context.Context, owner string) ([]*Account, error)
	UpdateAccount(
		ctx context.Context, owner string, asset Asset,
		updateFn func(a *Account) (*Account, error),
	) error
}
