package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/config"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/repository"
	"github.com/iliyamo/tuition-ledger/internal/utils"
)

// AuthHandler bundles dependencies for auth and profile endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Log    *logrus.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type walletReq struct {
	WalletAddress *string `json:"wallet_address"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    userView  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue creates an access/refresh pair for u and persists the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    newUserView(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates a student account and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     model.RoleStudent,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.Log.WithField("user_id", uid).Info("user registered")
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return writeError(c, h.Log, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required", "kind": apperr.KindValidation})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return writeError(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when no body token is given.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return writeError(c, h.Log, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "provide Authorization header or refresh_token",
			"kind":  apperr.KindValidation,
		})
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil || claims.UserID == 0 {
		return unauthorized(c)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newUserView(u))
}

// UpdateWallet sets or clears the caller's wallet address.
func (h *AuthHandler) UpdateWallet(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req walletReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	if req.WalletAddress != nil {
		w := strings.TrimSpace(*req.WalletAddress)
		if w == "" {
			req.WalletAddress = nil
		} else {
			req.WalletAddress = &w
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Users.UpdateWallet(ctx, uid, req.WalletAddress); err != nil {
		return writeError(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newUserView(u))
}
