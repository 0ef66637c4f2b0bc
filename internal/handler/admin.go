package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/service"
)

// AdminHandler serves /v1/admin.
type AdminHandler struct {
	Admin *service.AdminService
	Log   *logrus.Logger
}

func NewAdminHandler(a *service.AdminService, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{Admin: a, Log: log}
}

type decideReq struct {
	Status     string `json:"status" validate:"required,oneof=approved rejected"`
	AdminNotes string `json:"admin_notes"`
}

type defaultReq struct {
	AdminNotes string `json:"admin_notes"`
}

type addSchoolReq struct {
	Name          string `json:"name" validate:"required,max=255"`
	WalletAddress string `json:"wallet_address" validate:"required,max=255"`
	Verified      *bool  `json:"verified"`
}

type verifySchoolReq struct {
	Verified *bool `json:"verified" validate:"required"`
}

// withAdmin resolves the principal and a request-scoped context for fn.
func (h *AdminHandler) withAdmin(c echo.Context, fn func(ctx context.Context, p service.Principal) error) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return fn(ctx, p)
}

func (h *AdminHandler) Stats(c echo.Context) error {
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		st, err := h.Admin.Stats(ctx, p)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, newStatsView(st))
	})
}

func (h *AdminHandler) Users(c echo.Context) error {
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		users, err := h.Admin.ListUsers(ctx, p)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		out := make([]userView, 0, len(users))
		for _, u := range users {
			out = append(out, newUserView(u))
		}
		return c.JSON(http.StatusOK, out)
	})
}

// Advances lists every advance, optionally filtered by ?status=.
func (h *AdminHandler) Advances(c echo.Context) error {
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		list, err := h.Admin.ListAdvances(ctx, p, c.QueryParam("status"))
		if err != nil {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, newAdvanceDetailViews(list))
	})
}

// Decide approves or rejects a pending advance.
func (h *AdminHandler) Decide(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req decideReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		res, err := h.Admin.DecideAdvance(ctx, p, id, req.Status, req.AdminNotes)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"advance":    newAdvanceView(res.Advance),
			"repayments": newRepaymentViews(res.Schedule),
		})
	})
}

// Default marks an active advance as defaulted.
func (h *AdminHandler) Default(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req defaultReq
	_ = c.Bind(&req)
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		a, err := h.Admin.DeclareDefault(ctx, p, id, req.AdminNotes)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, newAdvanceView(a))
	})
}

func (h *AdminHandler) Schools(c echo.Context) error {
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		schools, err := h.Admin.ListSchools(ctx, p)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, newSchoolViews(schools))
	})
}

// AddSchool registers a school; it is verified unless the body says otherwise.
func (h *AdminHandler) AddSchool(c echo.Context) error {
	var req addSchoolReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		sc, err := h.Admin.AddSchool(ctx, p, req.Name, req.WalletAddress, verified)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusCreated, schoolView(sc))
	})
}

func (h *AdminHandler) VerifySchool(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req verifySchoolReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		sc, err := h.Admin.SetSchoolVerified(ctx, p, id, *req.Verified)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, schoolView(sc))
	})
}

// Reconcile reports savings buckets whose balance drifted from their ledger.
func (h *AdminHandler) Reconcile(c echo.Context) error {
	return h.withAdmin(c, func(ctx context.Context, p service.Principal) error {
		drift, err := h.Admin.Reconcile(ctx, p)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"drifted": len(drift),
			"buckets": newDriftViews(drift),
		})
	})
}
