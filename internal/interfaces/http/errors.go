package httpinterface

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/senda-network/senda-daemon/internal/core/application/pubsub"
	"github.com/senda-network/senda-daemon/internal/core/domain"
)

var errMissingRequester = errors.New("missing " + requesterHeader + " header")

var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInvalidParties, http.StatusBadRequest},
	{domain.ErrInvalidPartyKey, http.StatusBadRequest},
	{domain.ErrInvalidDiscriminator, http.StatusBadRequest},
	{domain.ErrInvalidPolicy, http.StatusBadRequest},
	{domain.ErrInvalidAsset, http.StatusBadRequest},
	{domain.ErrAssetMismatch, http.StatusBadRequest},
	{pubsub.ErrInvalidEvent, http.StatusBadRequest},
	{domain.ErrNotAuthorized, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrDuplicateLot, http.StatusConflict},
	{domain.ErrInvalidState, http.StatusConflict},
	{domain.ErrEscrowAlreadyExists, http.StatusConflict},
	{domain.ErrEscrowClosed, http.StatusConflict},
	{domain.ErrVaultNotHalted, http.StatusConflict},
	{domain.ErrVaultInconsistent, http.StatusConflict},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{domain.ErrBalanceOverflow, http.StatusUnprocessableEntity},
	{domain.ErrVaultHalted, http.StatusLocked},
	{pubsub.ErrPubSubDisabled, http.StatusServiceUnavailable},
	{domain.ErrTxConflict, http.StatusServiceUnavailable},
	{domain.ErrInsufficientVaultBalance, http.StatusInternalServerError},
}

// Errors outside the domain taxonomy that still have a dedicated code.
var extraCodes = map[error]string{
	pubsub.ErrInvalidEvent:   "INVALID_EVENT",
	pubsub.ErrPubSubDisabled: "WEBHOOKS_DISABLED",
}

func statusForError(err error) int {
	for _, s := range errorStatuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

func codeForError(err error) string {
	for e, code := range extraCodes {
		if errors.Is(err, e) {
			return code
		}
	}
	return domain.ErrorCode(err)
}

func respondError(c echo.Context, err error) error {
	status := statusForError(err)
	resp := errorResponse{
		Code:  codeForError(err),
		Error: err.Error(),
	}

	var lotErr *domain.LotError
	if errors.As(err, &lotErr) {
		resp.LotID = lotErr.LotID
		if lotErr.Expected != domain.LotStateUnspecified {
			resp.Expected = lotErr.Expected.String()
			resp.Actual = lotErr.Actual.String()
		}
	}

	if errors.Is(err, domain.ErrTxConflict) {
		c.Response().Header().Set("Retry-After", "1")
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.JSON(status, resp)
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{
		Code:  "BAD_REQUEST",
		Error: err.Error(),
	})
}
