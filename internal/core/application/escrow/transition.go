package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/senda-network/senda-daemon/internal/core/domain"
)

const (
	opDeposit = "deposit"
	opRelease = "release"
	opCancel  = "cancel"
)

// Deposit moves the amount from the depositor account to the escrow vault
// and binds a new lot to the next discriminator, all in one unit of work.
func (s *Service) Deposit(
	ctx context.Context, req DepositRequest,
) (lot *domain.DepositLot, err error) {
	start := time.Now()
	defer func() { s.observe(opDeposit, start, err) }()

	if req.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	unlock := s.locks.acquire(req.EscrowID)
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			return s.deposit(ctx, req)
		},
	)
	unlock()
	if err != nil {
		return nil, err
	}

	result := res.(depositResult)
	lot = result.lot

	log.WithFields(log.Fields{
		"escrow": lot.EscrowID,
		"lot":    lot.ID,
		"index":  lot.Index,
	}).Debugf("deposited %d %s", lot.Amount, lot.Asset)

	s.metrics.DepositedAmount.WithLabelValues(lot.Asset.String()).
		Add(float64(lot.Amount))
	s.mirror.NotifyEscrow(result.escrow)
	s.mirror.NotifyLot(lot)
	s.notify(opDeposit, func() error {
		return s.pubsub.PublishDepositCreated(result.escrow, lot)
	})
	return lot, nil
}

type depositResult struct {
	escrow *domain.Escrow
	lot    *domain.DepositLot
}

func (s *Service) deposit(
	ctx context.Context, req DepositRequest,
) (interface{}, error) {
	var escrow *domain.Escrow
	var lot *domain.DepositLot

	if err := s.repoManager.EscrowRepository().UpdateEscrow(
		ctx, req.EscrowID, func(e *domain.Escrow) (*domain.Escrow, error) {
			// Validate before binding the discriminator.
			if err := e.ValidateDeposit(req.Depositor, req.Counterparty); err != nil {
				return nil, err
			}
			index, err := e.BindNextIndex(req.ExpectedIndex)
			if err != nil {
				return nil, err
			}
			l, err := domain.NewDepositLot(
				e, index, req.Depositor, req.Counterparty,
				req.Asset, req.Policy, req.Amount,
			)
			if err != nil {
				return nil, err
			}
			e.AddDeposited(req.Asset, req.Amount)

			escrow, lot = e, l
			return e, nil
		},
	); err != nil {
		return nil, err
	}

	vaultID, err := escrow.VaultID(lot.Asset)
	if err != nil {
		return nil, err
	}

	if err := s.repoManager.AccountRepository().UpdateAccount(
		ctx, lot.Depositor, lot.Asset,
		func(a *domain.Account) (*domain.Account, error) {
			if err := a.Debit(lot.Amount); err != nil {
				return nil, err
			}
			return a, nil
		},
	); err != nil {
		return nil, err
	}

	if err := s.repoManager.VaultRepository().UpdateVault(
		ctx, vaultID, func(v *domain.Vault) (*domain.Vault, error) {
			if err := v.Credit(lot.Amount); err != nil {
				return nil, err
			}
			return v, nil
		},
	); err != nil {
		return nil, err
	}

	if err := s.repoManager.DepositLotRepository().AddLot(ctx, lot); err != nil {
		return nil, err
	}

	return depositResult{escrow, lot}, nil
}

// Release evaluates the request against the lot policy. If authorized, the
// lot amount is moved from the vault to the destination account and the lot
// is completed. For dual lots still missing a signature, the signatures of
// the request are recorded and no fund is moved.
func (s *Service) Release(
	ctx context.Context, lotID, requester, coSigner string,
) (result *ReleaseResult, err error) {
	start := time.Now()
	defer func() { s.observe(opRelease, start, err) }()

	req := domain.AuthorizationRequest{
		Action:    domain.ActionRelease,
		Requester: requester,
		CoSigner:  coSigner,
	}

	unlock, err := s.lockEscrowOfLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			return s.release(ctx, lotID, req)
		},
	)
	unlock()
	if err != nil {
		s.haltVaultIfInconsistent(ctx, lotID, err)
		return nil, err
	}

	result = res.(*ReleaseResult)
	lot := result.Lot
	s.mirror.NotifyLot(lot)

	if !result.IsCompleted() {
		s.notify(opRelease, func() error {
			return s.pubsub.PublishSignatureRecorded(lot, result.MissingRoles)
		})
		return result, nil
	}

	log.WithFields(log.Fields{
		"escrow": lot.EscrowID,
		"lot":    lot.ID,
	}).Debugf("released %d %s to %s", lot.Amount, lot.Asset, result.Destination)

	s.notify(opRelease, func() error {
		return s.pubsub.PublishLotReleased(lot, result.Destination)
	})
	return result, nil
}

func (s *Service) release(
	ctx context.Context, lotID string, req domain.AuthorizationRequest,
) (interface{}, error) {
	lot, err := s.repoManager.DepositLotRepository().GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	escrow, err := s.escrowParties(ctx, lot.EscrowID)
	if err != nil {
		return nil, err
	}

	decision := domain.Authorize(escrow, lot, req)
	switch decision.Outcome {
	case domain.OutcomeDenied:
		return nil, decision.Reason

	case domain.OutcomeAwaitingSignatures:
		if err := s.repoManager.DepositLotRepository().UpdateLot(
			ctx, lotID, func(l *domain.DepositLot) (*domain.DepositLot, error) {
				if err := recordSignatures(escrow, l, req); err != nil {
					return nil, err
				}
				lot = l
				return l, nil
			},
		); err != nil {
			return nil, err
		}
		return &ReleaseResult{
			Lot:          lot,
			Outcome:      decision.Outcome,
			MissingRoles: decision.MissingRoles,
		}, nil

	case domain.OutcomeApproved:
		destination := domain.ReleaseDestination(escrow, lot, req.Requester)
		lot, err = s.settle(ctx, escrow, lot, destination, func(l *domain.DepositLot) error {
			if l.Policy == domain.PolicyDual {
				if err := recordSignatures(escrow, l, req); err != nil {
					return err
				}
			}
			return l.Complete()
		})
		if err != nil {
			return nil, err
		}
		return &ReleaseResult{
			Lot:         lot,
			Outcome:     decision.Outcome,
			Destination: destination,
		}, nil

	default:
		return nil, fmt.Errorf("unknown authorization outcome %s", decision.Outcome)
	}
}

// Cancel gives the lot amount back to the depositor. Only the depositor can
// cancel, whatever the lot policy.
func (s *Service) Cancel(
	ctx context.Context, lotID, requester string,
) (lot *domain.DepositLot, err error) {
	start := time.Now()
	defer func() { s.observe(opCancel, start, err) }()

	req := domain.AuthorizationRequest{
		Action:    domain.ActionCancel,
		Requester: requester,
	}

	unlock, err := s.lockEscrowOfLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			lot, err := s.repoManager.DepositLotRepository().GetLot(ctx, lotID)
			if err != nil {
				return nil, err
			}
			escrow, err := s.escrowParties(ctx, lot.EscrowID)
			if err != nil {
				return nil, err
			}

			decision := domain.Authorize(escrow, lot, req)
			if !decision.IsApproved() {
				return nil, decision.Reason
			}
			return s.settle(ctx, escrow, lot, lot.Depositor, func(l *domain.DepositLot) error {
				return l.Cancel()
			})
		},
	)
	unlock()
	if err != nil {
		s.haltVaultIfInconsistent(ctx, lotID, err)
		return nil, err
	}

	lot = res.(*domain.DepositLot)
	s.mirror.NotifyLot(lot)
	s.notify(opCancel, func() error {
		return s.pubsub.PublishLotCancelled(lot)
	})
	return lot, nil
}

// lockEscrowOfLot acquires the lock of the escrow the lot belongs to. The
// escrow of a lot never changes, so it is safe to read it beforehand.
func (s *Service) lockEscrowOfLot(
	ctx context.Context, lotID string,
) (func(), error) {
	lot, err := s.repoManager.DepositLotRepository().GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return s.locks.acquire(lot.EscrowID), nil
}

// settle debits exactly the lot amount from its vault, credits it to the
// destination account and applies the final transition to the lot. It must
// run within a transaction.
func (s *Service) settle(
	ctx context.Context, escrow *domain.Escrow, lot *domain.DepositLot,
	destination string, transition func(l *domain.DepositLot) error,
) (*domain.DepositLot, error) {
	vaultID, err := escrow.VaultID(lot.Asset)
	if err != nil {
		return nil, err
	}

	if err := s.repoManager.VaultRepository().UpdateVault(
		ctx, vaultID, func(v *domain.Vault) (*domain.Vault, error) {
			if err := v.DebitExact(lot); err != nil {
				if errors.Is(err, domain.ErrInsufficientVaultBalance) {
					log.WithFields(log.Fields{
						"vault":   v.ID,
						"lot":     lot.ID,
						"balance": v.Balance,
						"amount":  lot.Amount,
					}).Error("vault accounting invariant violated")
				}
				return nil, err
			}
			return v, nil
		},
	); err != nil {
		return nil, err
	}

	if err := s.repoManager.AccountRepository().UpdateAccount(
		ctx, destination, lot.Asset,
		func(a *domain.Account) (*domain.Account, error) {
			if err := a.Credit(lot.Amount); err != nil {
				return nil, err
			}
			return a, nil
		},
	); err != nil {
		return nil, err
	}

	var settled *domain.DepositLot
	if err := s.repoManager.DepositLotRepository().UpdateLot(
		ctx, lot.ID, func(l *domain.DepositLot) (*domain.DepositLot, error) {
			if err := transition(l); err != nil {
				return nil, err
			}
			settled = l
			return l, nil
		},
	); err != nil {
		return nil, err
	}
	return settled, nil
}

// haltVaultIfInconsistent halts the vault backing the lot when err reports
// a broken accounting invariant. It runs in its own unit of work since the
// failed one has been rolled back.
func (s *Service) haltVaultIfInconsistent(
	ctx context.Context, lotID string, err error,
) {
	if !errors.Is(err, domain.ErrInsufficientVaultBalance) {
		return
	}

	res, herr := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			lot, err := s.repoManager.DepositLotRepository().GetLot(ctx, lotID)
			if err != nil {
				return nil, err
			}
			escrow, err := s.escrowParties(ctx, lot.EscrowID)
			if err != nil {
				return nil, err
			}
			vaultID, err := escrow.VaultID(lot.Asset)
			if err != nil {
				return nil, err
			}

			var halted *domain.Vault
			if err := s.repoManager.VaultRepository().UpdateVault(
				ctx, vaultID, func(v *domain.Vault) (*domain.Vault, error) {
					v.Halt(fmt.Sprintf(
						"balance %d cannot cover lot %s of %d",
						v.Balance, lot.ID, lot.Amount,
					))
					halted = v
					return v, nil
				},
			); err != nil {
				return nil, err
			}
			return halted, nil
		},
	)
	if herr != nil {
		log.WithError(herr).Errorf("failed to halt vault of lot %s", lotID)
		return
	}

	vault := res.(*domain.Vault)
	log.WithField("vault", vault.ID).Error("vault halted, reconciliation required")
	s.metrics.VaultHalts.Inc()
	s.metrics.HaltedVaults.Inc()
	s.notify("vault halt", func() error {
		return s.pubsub.PublishVaultHalted(vault, lotID)
	})
}

// recordSignatures records the signatures carried by the request on a dual
// lot.
func recordSignatures(
	escrow *domain.Escrow, lot *domain.DepositLot, req domain.AuthorizationRequest,
) error {
	if err := lot.RecordSignature(req.Requester, escrow.RoleOf(req.Requester)); err != nil {
		return err
	}
	if req.CoSigner == "" || req.CoSigner == req.Requester {
		return nil
	}
	return lot.RecordSignature(req.CoSigner, escrow.RoleOf(req.CoSigner))
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
