package httpinterface

import (
	"github.com/shopspring/decimal"

	"github.com/senda-network/senda-daemon/internal/core/application/escrow"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
)

type openEscrowRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

type depositRequest struct {
	Depositor     string  `json:"depositor"`
	Counterparty  string  `json:"counterparty"`
	Asset         string  `json:"asset"`
	Policy        string  `json:"policy"`
	Amount        uint64  `json:"amount"`
	ExpectedIndex *uint64 `json:"expected_index,omitempty"`
}

type fundAccountRequest struct {
	Owner  string `json:"owner"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

type addWebhookRequest struct {
	Event    string `json:"event"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret,omitempty"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
	LotID string `json:"lot_id,omitempty"`
	// Expected and actual lot states for INVALID_STATE.
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

type escrowInfo struct {
	ID             string            `json:"id"`
	Sender         string            `json:"sender"`
	Receiver       string            `json:"receiver"`
	State          string            `json:"state"`
	DepositCount   uint64            `json:"deposit_count"`
	Vaults         map[string]string `json:"vaults"`
	DepositedTotal map[string]string `json:"deposited_total"`
	CreatedAt      int64             `json:"created_at"`
}

type signatureInfo struct {
	Signer    string `json:"signer"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

type lotInfo struct {
	ID            string          `json:"id"`
	EscrowID      string          `json:"escrow_id"`
	Index         uint64          `json:"index"`
	Depositor     string          `json:"depositor"`
	Counterparty  string          `json:"counterparty"`
	Amount        uint64          `json:"amount"`
	AmountDisplay string          `json:"amount_display"`
	Asset         string          `json:"asset"`
	Policy        string          `json:"policy"`
	State         string          `json:"state"`
	Signatures    []signatureInfo `json:"signatures"`
	Version       uint64          `json:"version"`
	CreatedAt     int64           `json:"created_at"`
	UpdatedAt     int64           `json:"updated_at"`
}

type releaseResponse struct {
	Lot          lotInfo  `json:"lot"`
	Outcome      string   `json:"outcome"`
	MissingRoles []string `json:"missing_roles,omitempty"`
	Destination  string   `json:"destination,omitempty"`
}

type vaultInfo struct {
	ID            string `json:"id"`
	EscrowID      string `json:"escrow_id"`
	Asset         string `json:"asset"`
	Balance       uint64 `json:"balance"`
	PendingAmount uint64 `json:"pending_amount"`
	PendingLots   int    `json:"pending_lots"`
	Halted        bool   `json:"halted"`
	HaltReason    string `json:"halt_reason,omitempty"`
}

type balanceInfo struct {
	Owner          string `json:"owner"`
	Asset          string `json:"asset"`
	Balance        uint64 `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
}

type webhookInfo struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Endpoint  string `json:"endpoint"`
	IsSecured bool   `json:"is_secured"`
}

func formatAmount(amount uint64) string {
	return decimal.New(int64(amount), -domain.StablecoinDecimals).
		StringFixed(domain.StablecoinDecimals)
}

func toEscrowInfo(e *domain.Escrow) escrowInfo {
	vaults := make(map[string]string, len(e.VaultIDs))
	for asset, id := range e.VaultIDs {
		vaults[asset.String()] = id
	}
	totals := make(map[string]string, len(e.DepositedTotal))
	for asset, total := range e.DepositedTotal {
		totals[asset.String()] = formatAmount(total)
	}
	return escrowInfo{
		ID:             e.ID,
		Sender:         e.Sender,
		Receiver:       e.Receiver,
		State:          e.State.String(),
		DepositCount:   e.DepositCount,
		Vaults:         vaults,
		DepositedTotal: totals,
		CreatedAt:      e.CreatedAt,
	}
}

func toEscrowList(escrows []*domain.Escrow) []escrowInfo {
	list := make([]escrowInfo, 0, len(escrows))
	for _, e := range escrows {
		list = append(list, toEscrowInfo(e))
	}
	return list
}

func toLotInfo(l *domain.DepositLot) lotInfo {
	sigs := make([]signatureInfo, 0, len(l.Signatures))
	for _, s := range l.Signatures {
		sigs = append(sigs, signatureInfo{
			Signer:    s.Signer,
			Role:      s.Role.String(),
			Status:    s.Status.String(),
			Timestamp: s.Timestamp,
		})
	}
	return lotInfo{
		ID:            l.ID,
		EscrowID:      l.EscrowID,
		Index:         l.Index,
		Depositor:     l.Depositor,
		Counterparty:  l.Counterparty,
		Amount:        l.Amount,
		AmountDisplay: formatAmount(l.Amount),
		Asset:         l.Asset.String(),
		Policy:        l.Policy.String(),
		State:         l.State.String(),
		Signatures:    sigs,
		Version:       l.Version,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func toLotList(lots []*domain.DepositLot) []lotInfo {
	list := make([]lotInfo, 0, len(lots))
	for _, l := range lots {
		list = append(list, toLotInfo(l))
	}
	return list
}

func toReleaseResponse(res *escrow.ReleaseResult) releaseResponse {
	missing := make([]string, 0, len(res.MissingRoles))
	for _, r := range res.MissingRoles {
		missing = append(missing, r.String())
	}
	return releaseResponse{
		Lot:          toLotInfo(res.Lot),
		Outcome:      res.Outcome.String(),
		MissingRoles: missing,
		Destination:  res.Destination,
	}
}

func toVaultList(vaults []escrow.VaultInfo) []vaultInfo {
	list := make([]vaultInfo, 0, len(vaults))
	for _, v := range vaults {
		list = append(list, toVaultInfo(v))
	}
	return list
}

func toVaultInfo(v escrow.VaultInfo) vaultInfo {
	return vaultInfo{
		ID:            v.ID,
		EscrowID:      v.EscrowID,
		Asset:         v.Asset.String(),
		Balance:       v.Balance,
		PendingAmount: v.PendingAmount,
		PendingLots:   v.PendingLots,
		Halted:        v.Halted,
		HaltReason:    v.HaltReason,
	}
}

func toBalanceInfo(a *domain.Account) balanceInfo {
	return balanceInfo{
		Owner:          a.Owner,
		Asset:          a.Asset.String(),
		Balance:        a.Balance,
		BalanceDisplay: formatAmount(a.Balance),
	}
}

func toBalanceList(accounts []*domain.Account) []balanceInfo {
	list := make([]balanceInfo, 0, len(accounts))
	for _, a := range accounts {
		list = append(list, toBalanceInfo(a))
	}
	return list
}

func toWebhookList(subs []ports.Subscription) []webhookInfo {
	list := make([]webhookInfo, 0, len(subs))
	for _, s := range subs {
		list = append(list, webhookInfo{
			ID:        s.Id(),
			Event:     s.Topic(),
			Endpoint:  s.NotifyAt(),
			IsSecured: s.IsSecured(),
		})
	}
	return list
}
