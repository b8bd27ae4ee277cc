package httpinterface

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/senda-network/senda-daemon/internal/core/application"
	"github.com/senda-network/senda-daemon/internal/core/application/escrow"
	"github.com/senda-network/senda-daemon/internal/core/domain"
)

// requesterHeader carries the key of the authenticated caller. It is set by
// the identity layer in front of the daemon.
const requesterHeader = "X-Senda-Requester"

type escrowHandler struct {
	escrowSvc application.EscrowService
}

type operatorHandler struct {
	operatorSvc application.OperatorService
}

func requester(c echo.Context) (string, error) {
	key := c.Request().Header.Get(requesterHeader)
	if len(key) <= 0 {
		return "", errMissingRequester
	}
	return key, nil
}

func (h escrowHandler) openEscrow(c echo.Context) error {
	var req openEscrowRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	e, err := h.escrowSvc.OpenOrGetEscrow(
		c.Request().Context(), req.Sender, req.Receiver,
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toEscrowInfo(e))
}

func (h escrowHandler) getEscrow(c echo.Context) error {
	e, err := h.escrowSvc.GetEscrow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toEscrowInfo(e))
}

func (h escrowHandler) listEscrowsForParty(c echo.Context) error {
	escrows, err := h.escrowSvc.ListEscrowsForParty(
		c.Request().Context(), c.Param("key"),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toEscrowList(escrows))
}

func (h escrowHandler) getVaults(c echo.Context) error {
	vaults, err := h.escrowSvc.GetVaults(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toVaultList(vaults))
}

func (h escrowHandler) deposit(c echo.Context) error {
	key, err := requester(c)
	if err != nil {
		return respondError(c, fmt.Errorf("%w: %s", domain.ErrNotAuthorized, err))
	}

	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if len(req.Depositor) <= 0 {
		req.Depositor = key
	}
	if req.Depositor != key {
		return respondError(c, fmt.Errorf(
			"%w: only the depositor can deposit", domain.ErrNotAuthorized,
		))
	}
	asset, err := domain.ParseAsset(req.Asset)
	if err != nil {
		return respondError(c, err)
	}
	policy, err := domain.ParsePolicy(req.Policy)
	if err != nil {
		return respondError(c, err)
	}

	lot, err := h.escrowSvc.Deposit(c.Request().Context(), escrow.DepositRequest{
		EscrowID:      c.Param("id"),
		Depositor:     req.Depositor,
		Counterparty:  req.Counterparty,
		Asset:         asset,
		Policy:        policy,
		Amount:        req.Amount,
		ExpectedIndex: req.ExpectedIndex,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toLotInfo(lot))
}

func (h escrowHandler) listLots(c echo.Context) error {
	filter := domain.LotFilter{Party: c.QueryParam("party")}
	if s := c.QueryParam("state"); len(s) > 0 {
		state, err := domain.ParseLotState(s)
		if err != nil {
			return badRequest(c, err)
		}
		filter.State = state
	}
	pageNumber, err := intQueryParam(c, "page")
	if err != nil {
		return badRequest(c, err)
	}
	pageSize, err := intQueryParam(c, "size")
	if err != nil {
		return badRequest(c, err)
	}

	lots, err := h.escrowSvc.ListLots(
		c.Request().Context(), c.Param("id"), filter,
		domain.NewPage(pageNumber, pageSize),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toLotList(lots))
}

func (h escrowHandler) getLot(c echo.Context) error {
	lot, err := h.escrowSvc.GetLot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toLotInfo(lot))
}

func (h escrowHandler) release(c echo.Context) error {
	key, err := requester(c)
	if err != nil {
		return respondError(c, fmt.Errorf("%w: %s", domain.ErrNotAuthorized, err))
	}

	// Only the authenticated requester signs. Any body is ignored.
	res, err := h.escrowSvc.Release(c.Request().Context(), c.Param("id"), key, "")
	if err != nil {
		return respondError(c, err)
	}

	status := http.StatusOK
	if !res.IsCompleted() {
		status = http.StatusAccepted
	}
	return c.JSON(status, toReleaseResponse(res))
}

func (h escrowHandler) cancel(c echo.Context) error {
	key, err := requester(c)
	if err != nil {
		return respondError(c, fmt.Errorf("%w: %s", domain.ErrNotAuthorized, err))
	}

	lot, err := h.escrowSvc.Cancel(c.Request().Context(), c.Param("id"), key)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toLotInfo(lot))
}

func (h escrowHandler) getBalances(c echo.Context) error {
	accounts, err := h.escrowSvc.GetBalances(
		c.Request().Context(), c.Param("owner"),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBalanceList(accounts))
}

func (h operatorHandler) fundAccount(c echo.Context) error {
	var req fundAccountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	asset, err := domain.ParseAsset(req.Asset)
	if err != nil {
		return respondError(c, err)
	}

	account, err := h.operatorSvc.FundAccount(
		c.Request().Context(), req.Owner, asset, req.Amount,
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBalanceInfo(account))
}

func (h operatorHandler) reconcileVault(c echo.Context) error {
	vault, err := h.operatorSvc.ReconcileVault(
		c.Request().Context(), c.Param("id"),
	)
	if err != nil {
		return respondError(c, err)
	}
	// A reconciled vault backs exactly its pending lots.
	return c.JSON(http.StatusOK, toVaultInfo(escrow.VaultInfo{
		Vault: vault, PendingAmount: vault.Balance,
	}))
}

func (h operatorHandler) addWebhook(c echo.Context) error {
	var req addWebhookRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	id, err := h.operatorSvc.AddWebhook(
		c.Request().Context(), req.Event, req.Endpoint, req.Secret,
	)
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			return badRequest(c, err)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h operatorHandler) removeWebhook(c echo.Context) error {
	if err := h.operatorSvc.RemoveWebhook(
		c.Request().Context(), c.Param("id"),
	); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h operatorHandler) listWebhooks(c echo.Context) error {
	subs, err := h.operatorSvc.ListWebhooks(
		c.Request().Context(), c.QueryParam("event"),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toWebhookList(subs))
}

func intQueryParam(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if len(s) <= 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, s)
	}
	return n, nil
}
