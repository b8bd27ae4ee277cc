package domain

// Action is what a requester asks to do with a lot.
type Action int

const (
	ActionRelease Action = iota
	ActionCancel
)

func (a Action) String() string {
	if a == ActionCancel {
		return "cancel"
	}
	return "release"
}

type Outcome int

const (
	OutcomeDenied Outcome = iota
	OutcomeApproved
	OutcomeAwaitingSignatures
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "APPROVED"
	case OutcomeAwaitingSignatures:
		return "AWAITING_SIGNATURES"
	default:
		return "DENIED"
	}
}

// Decision is the result of evaluating a request against a lot.
type Decision struct {
	Outcome      Outcome
	Reason       error
	MissingRoles []Role
}

func (d Decision) IsApproved() bool {
	return d.Outcome == OutcomeApproved
}

func approved() Decision {
	return Decision{Outcome: OutcomeApproved}
}

func denied(reason error) Decision {
	return Decision{Outcome: OutcomeDenied, Reason: reason}
}

func awaiting(missing []Role) Decision {
	return Decision{Outcome: OutcomeAwaitingSignatures, MissingRoles: missing}
}

// AuthorizationRequest describes who is asking. CoSigner is an optional
// second party signing the same release request.
type AuthorizationRequest struct {
	Action    Action
	Requester string
	CoSigner  string
}

// Authorize evaluates req against the lot policy and signer log. It has no
// side effects. For dual lots the signatures carried by the request count
// as present.
func Authorize(escrow *Escrow, lot *DepositLot, req AuthorizationRequest) Decision {
	if !lot.IsPending() {
		return denied(newInvalidStateError(lot, LotStatePendingWithdrawal))
	}

	if req.Action == ActionCancel {
		// Cancel does not depend on the policy.
		if req.Requester != lot.Depositor {
			return denied(newLotError(ErrNotAuthorized, lot))
		}
		return approved()
	}

	role := escrow.RoleOf(req.Requester)
	if role == RoleNone {
		return denied(newLotError(ErrNotAuthorized, lot))
	}

	switch lot.Policy {
	case PolicySenderOnly:
		if role != RoleSender {
			return denied(newLotError(ErrNotAuthorized, lot))
		}
		return approved()
	case PolicyReceiverOnly:
		if role != RoleReceiver {
			return denied(newLotError(ErrNotAuthorized, lot))
		}
		return approved()
	case PolicyDual:
		signed := map[Role]bool{role: true}
		if req.CoSigner != "" {
			coRole := escrow.RoleOf(req.CoSigner)
			if coRole == RoleNone {
				return denied(newLotError(ErrNotAuthorized, lot))
			}
			signed[coRole] = true
		}
		missing := make([]Role, 0, 2)
		for _, r := range []Role{RoleSender, RoleReceiver} {
			if !signed[r] && !lot.IsSigned(r) {
				missing = append(missing, r)
			}
		}
		if len(missing) > 0 {
			return awaiting(missing)
		}
		return approved()
	default:
		return denied(newLotError(ErrInvalidPolicy, lot))
	}
}

// ReleaseDestination returns who receives the funds of an approved release:
// the counterparty of the requester for single-signer policies, the lot
// counterparty for dual lots.
func ReleaseDestination(escrow *Escrow, lot *DepositLot, requester string) string {
	if lot.Policy == PolicyDual {
		return lot.Counterparty
	}
	return escrow.Counterparty(requester)
}
