package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/service"
)

// AdvanceHandler serves the student side of the advance lifecycle and
// the public school directory.
type AdvanceHandler struct {
	Advances *service.AdvanceService
	Log      *logrus.Logger
}

func NewAdvanceHandler(a *service.AdvanceService, log *logrus.Logger) *AdvanceHandler {
	return &AdvanceHandler{Advances: a, Log: log}
}

type requestAdvanceReq struct {
	SchoolID       uint64           `json:"school_id" validate:"required"`
	Amount         *decimal.Decimal `json:"amount" validate:"required"`
	DurationMonths int              `json:"duration_months" validate:"required"`
}

type repayReq struct {
	Amount *decimal.Decimal `json:"amount"`
}

// ListSchools returns the verified schools a student may choose from.
func (h *AdvanceHandler) ListSchools(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	schools, err := h.Advances.ListVerifiedSchools(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newSchoolViews(schools))
}

// Request submits a new advance and returns it with its quote.
func (h *AdvanceHandler) Request(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	var req requestAdvanceReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Advances.RequestAdvance(ctx, p, service.AdvanceRequest{
		SchoolID:       req.SchoolID,
		Amount:         *req.Amount,
		DurationMonths: req.DurationMonths,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"advance": newAdvanceView(res.Advance),
		"quote":   newQuoteView(res.Quote),
	})
}

// List returns the caller's advances, newest first.
func (h *AdvanceHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Advances.ListAdvances(ctx, p, c.QueryParam("status"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newAdvanceDetailViews(list))
}

// Get returns one advance with its repayment schedule.  Students only
// see their own advances; admins see any.
func (h *AdvanceHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	view, err := h.Advances.GetAdvance(ctx, p, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"advance":    newAdvanceDetailView(view.Advance),
		"repayments": newRepaymentViews(view.Schedule),
	})
}

// Repay settles the earliest pending installment.  A client supplied
// amount is not used: the installment is always paid in full.
func (h *AdvanceHandler) Repay(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req repayReq
	_ = c.Bind(&req)
	if req.Amount != nil {
		h.Log.WithFields(logrus.Fields{
			"advance_id": id,
			"user_id":    p.UserID,
			"amount":     req.Amount.String(),
		}).Warn("repay amount ignored; installments are paid in full")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Advances.ApplyRepayment(ctx, p, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"repayment":      newRepaymentView(res.Paid),
		"remaining":      res.Remaining,
		"advance_status": res.AdvanceStatus,
	})
}
