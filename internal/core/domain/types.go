package domain

import (
	"fmt"
	"strings"
)

// Asset is one of the stablecoins an escrow can hold.
type Asset int

const (
	AssetUnspecified Asset = iota
	AssetUSDC
	AssetUSDT
)

// SupportedAssets lists the assets every escrow opens a vault for.
var SupportedAssets = []Asset{AssetUSDC, AssetUSDT}

func (a Asset) String() string {
	switch a {
	case AssetUSDC:
		return "USDC"
	case AssetUSDT:
		return "USDT"
	default:
		return "UNSPECIFIED"
	}
}

func (a Asset) IsValid() bool {
	return a == AssetUSDC || a == AssetUSDT
}

// ParseAsset is case insensitive.
func ParseAsset(s string) (Asset, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USDC":
		return AssetUSDC, nil
	case "USDT":
		return AssetUSDT, nil
	default:
		return AssetUnspecified, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}
}

// Policy determines which party(ies) must authorize the release of a lot.
type Policy int

const (
	PolicyUnspecified Policy = iota
	PolicySenderOnly
	PolicyReceiverOnly
	PolicyDual
)

func (p Policy) String() string {
	switch p {
	case PolicySenderOnly:
		return "SENDER_ONLY"
	case PolicyReceiverOnly:
		return "RECEIVER_ONLY"
	case PolicyDual:
		return "DUAL"
	default:
		return "UNSPECIFIED"
	}
}

func (p Policy) IsValid() bool {
	switch p {
	case PolicySenderOnly, PolicyReceiverOnly, PolicyDual:
		return true
	default:
		return false
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SENDER_ONLY", "SENDERONLY", "SENDER":
		return PolicySenderOnly, nil
	case "RECEIVER_ONLY", "RECEIVERONLY", "RECEIVER":
		return PolicyReceiverOnly, nil
	case "DUAL", "BOTH":
		return PolicyDual, nil
	default:
		return PolicyUnspecified, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// Role is the side a party plays in an escrow.
type Role int

const (
	RoleNone Role = iota
	RoleSender
	RoleReceiver
)

func (r Role) String() string {
	switch r {
	case RoleSender:
		return "sender"
	case RoleReceiver:
		return "receiver"
	default:
		return "none"
	}
}

// LotState is the lifecycle state of a deposit lot. The only allowed
// transitions are PendingWithdrawal -> Completed and
// PendingWithdrawal -> Cancelled. Disputed is reserved.
type LotState int

const (
	LotStateUnspecified LotState = iota
	LotStatePendingWithdrawal
	LotStateCompleted
	LotStateCancelled
	LotStateDisputed
)

func (s LotState) String() string {
	switch s {
	case LotStatePendingWithdrawal:
		return "PENDING_WITHDRAWAL"
	case LotStateCompleted:
		return "COMPLETED"
	case LotStateCancelled:
		return "CANCELLED"
	case LotStateDisputed:
		return "DISPUTED"
	default:
		return "UNSPECIFIED"
	}
}

func (s LotState) IsFinal() bool {
	return s == LotStateCompleted || s == LotStateCancelled
}

func ParseLotState(s string) (LotState, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING_WITHDRAWAL", "PENDING":
		return LotStatePendingWithdrawal, nil
	case "COMPLETED":
		return LotStateCompleted, nil
	case "CANCELLED":
		return LotStateCancelled, nil
	case "DISPUTED":
		return LotStateDisputed, nil
	default:
		return LotStateUnspecified, fmt.Errorf("unknown lot state %q", s)
	}
}

type EscrowState int

const (
	EscrowStateActive EscrowState = iota
	// EscrowStateClosed is reserved for administrative teardown.
	EscrowStateClosed
)

func (s EscrowState) String() string {
	if s == EscrowStateClosed {
		return "CLOSED"
	}
	return "ACTIVE"
}

type SignatureStatus int

const (
	SignaturePending SignatureStatus = iota
	SignatureSigned
)

func (s SignatureStatus) String() string {
	if s == SignatureSigned {
		return "signed"
	}
	return "pending"
}
