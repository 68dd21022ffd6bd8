package http

import (
	"net/http"
	"time"

	"collections-backend/internal/logger"
	"collections-backend/internal/usecase/payment"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	uc  *payment.Usecase
	log *zap.Logger
}

func NewPaymentHandler(uc *payment.Usecase, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{uc: uc, log: logger.OrNop(log)}
}

type registerPaymentReq struct {
	Amount          decimal.Decimal `json:"amount" validate:"dpos,dec2"`
	ExpectedVersion *time.Time      `json:"expected_version"`
}

func (h *PaymentHandler) RegisterPayment(c echo.Context) error {
	loanID, ok := uintParam(c, "id")
	if !ok {
		return badRequest(c, "invalid loan id")
	}
	holder, err := holderFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req registerPaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Register(c.Request().Context(), payment.RegisterInput{
		LoanID:          loanID,
		Amount:          req.Amount,
		Holder:          holder,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *PaymentHandler) ListLoanPayments(c echo.Context) error {
	loanID, ok := uintParam(c, "id")
	if !ok {
		return badRequest(c, "invalid loan id")
	}
	list, err := h.uc.ListByLoan(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"payments": list})
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	p, err := h.uc.GetByReference(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}
