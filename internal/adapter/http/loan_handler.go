package http

import (
	"context"
	"net/http"
	"time"

	"collections-backend/internal/logger"
	"collections-backend/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LoanHandler struct {
	uc  *loan.Usecase
	log *zap.Logger
}

func NewLoanHandler(uc *loan.Usecase, log *zap.Logger) *LoanHandler {
	return &LoanHandler{uc: uc, log: logger.OrNop(log)}
}

type createLoanReq struct {
	BorrowerID string          `json:"borrower_id" validate:"required,max=32"`
	Principal  decimal.Decimal `json:"principal" validate:"dpos,dec2"`
	Rate       decimal.Decimal `json:"rate" validate:"dgte0"`
	TermMonths int             `json:"term_months" validate:"gte=1,lte=360"`
}

type moraReq struct {
	AsOf            *time.Time `json:"as_of"`
	ExpectedVersion *time.Time `json:"expected_version"`
}

type rescheduleReq struct {
	Rate            decimal.Decimal `json:"rate" validate:"dgte0"`
	TermMonths      int             `json:"term_months" validate:"gte=1,lte=360"`
	ExpectedVersion *time.Time      `json:"expected_version"`
}

type writeOffReq struct {
	Reason          string     `json:"reason" validate:"max=200"`
	ExpectedVersion *time.Time `json:"expected_version"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Create(c.Request().Context(), loan.CreateLoanInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, ok := uintParam(c, "id")
	if !ok {
		return badRequest(c, "invalid loan id")
	}
	dto, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// guard reads the loan id and acting user shared by every mutating route. On
// false the 400 response has been written.
func (h *LoanHandler) guard(c echo.Context) (uint64, *uint64, bool, error) {
	id, ok := uintParam(c, "id")
	if !ok {
		return 0, nil, false, badRequest(c, "invalid loan id")
	}
	holder, err := holderFrom(c)
	if err != nil {
		return 0, nil, false, badRequest(c, err.Error())
	}
	return id, holder, true, nil
}

func (h *LoanHandler) ApplyMora(c echo.Context) error {
	id, holder, ok, err := h.guard(c)
	if !ok {
		return err
	}
	var req moraReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	in := loan.ApplyMoraInput{LoanID: id, Guard: loan.Guard{Holder: holder, ExpectedVersion: req.ExpectedVersion}}
	if req.AsOf != nil {
		in.AsOf = req.AsOf.UTC()
	}
	dto, err := h.uc.ApplyMora(c.Request().Context(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Refinance(c echo.Context) error {
	return h.reschedule(c, h.uc.Refinance)
}

func (h *LoanHandler) Restructure(c echo.Context) error {
	return h.reschedule(c, h.uc.Restructure)
}

func (h *LoanHandler) reschedule(c echo.Context, op func(ctx context.Context, in loan.RescheduleInput) (*loan.LoanDTO, error)) error {
	id, holder, ok, err := h.guard(c)
	if !ok {
		return err
	}
	var req rescheduleReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := op(c.Request().Context(), loan.RescheduleInput{
		LoanID:     id,
		Rate:       req.Rate,
		TermMonths: req.TermMonths,
		Guard:      loan.Guard{Holder: holder, ExpectedVersion: req.ExpectedVersion},
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) WriteOff(c echo.Context) error {
	id, holder, ok, err := h.guard(c)
	if !ok {
		return err
	}
	var req writeOffReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.WriteOff(c.Request().Context(), loan.WriteOffInput{
		LoanID: id,
		Reason: req.Reason,
		Guard:  loan.Guard{Holder: holder, ExpectedVersion: req.ExpectedVersion},
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
