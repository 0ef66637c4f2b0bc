package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/service"
)

// SavingsHandler serves savings buckets.
type SavingsHandler struct {
	Savings *service.SavingsService
	Log     *logrus.Logger
}

func NewSavingsHandler(s *service.SavingsService, log *logrus.Logger) *SavingsHandler {
	return &SavingsHandler{Savings: s, Log: log}
}

type createBucketReq struct {
	Name         string           `json:"name" validate:"required,max=255"`
	TargetAmount *decimal.Decimal `json:"target_amount" validate:"required"`
	Frequency    string           `json:"frequency"`
}

type movementReq struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

func (h *SavingsHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createBucketReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Savings.CreateBucket(ctx, p, service.NewBucket{
		Name:         req.Name,
		TargetAmount: *req.TargetAmount,
		Frequency:    req.Frequency,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, newBucketView(b))
}

func (h *SavingsHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Savings.ListBuckets(ctx, p)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]bucketView, 0, len(list))
	for _, b := range list {
		out = append(out, newBucketView(b))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a bucket with its transactions, newest first.
func (h *SavingsHandler) Get(c echo.Context) error {
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

	view, err := h.Savings.GetBucket(ctx, p, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	txns := make([]txnView, 0, len(view.Transactions))
	for _, t := range view.Transactions {
		txns = append(txns, newTxnView(t))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bucket":       newBucketView(view.Bucket),
		"transactions": txns,
	})
}

func (h *SavingsHandler) Deposit(c echo.Context) error {
	return h.move(c, h.Savings.Deposit)
}

func (h *SavingsHandler) Withdraw(c echo.Context) error {
	return h.move(c, h.Savings.Withdraw)
}

type movement func(ctx context.Context, p service.Principal, bucketID uint64, amount decimal.Decimal) (service.BucketBalance, error)

func (h *SavingsHandler) move(c echo.Context, op movement) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req movementReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := op(ctx, p, id, *req.Amount)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bucket":      newBucketView(res.Bucket),
		"transaction": newTxnView(res.Transaction),
	})
}
