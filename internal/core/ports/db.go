package ports

import (
	"context"

	"github.com/senda-network/senda-daemon/internal/core/domain"
)

// RepoManager gives access to every repository and runs units of work
// across them.
type RepoManager interface {
	EscrowRepository() domain.EscrowRepository
	DepositLotRepository() domain.DepositLotRepository
	VaultRepository() domain.VaultRepository
	AccountRepository() domain.AccountRepository

	// RunTransaction executes handler in a single atomic unit of work: either
	// every repository mutation made through the given ctx is committed or
	// none is. Calls nested in an already running transaction join it.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)

	Close()
}
