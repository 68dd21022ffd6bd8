package http

import (
	"errors"
	"net/http"

	loanDomain "collections-backend/internal/domain/loan"
	lockDomain "collections-backend/internal/domain/lock"
	paymentDomain "collections-backend/internal/domain/payment"
	"collections-backend/internal/domain/version"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var unprocessable = []error{
	lockDomain.ErrInvalidResource,
	lockDomain.ErrInvalidTimeout,
	loanDomain.ErrNotActive,
	loanDomain.ErrOverpayment,
	loanDomain.ErrMoraOutstanding,
	loanDomain.ErrInvalidTerms,
	paymentDomain.ErrInvalidAmount,
}

// statusFor maps a usecase error to its HTTP status and client-facing message.
func statusFor(err error) (int, string) {
	var busy *lockDomain.BusyError
	switch {
	case errors.As(err, &busy):
		return http.StatusConflict, busy.Error()
	case errors.Is(err, version.ErrStaleWrite):
		return http.StatusConflict, version.ErrStaleWrite.Error()
	case errors.Is(err, lockDomain.ErrOwnershipViolation):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, loanDomain.ErrNotFound), errors.Is(err, paymentDomain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, lockDomain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "lock service unavailable, please try again"
	}
	for _, target := range unprocessable {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity, err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func respondError(c echo.Context, log *zap.Logger, err error) error {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}
	return c.JSON(code, ErrorResponse{Error: msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// bindAndValidate decodes the body into req. It writes the 400/422 response itself
// and reports false when the handler should stop.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}
