package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// getUserID extracts the user_id placed in the context by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// principal builds the service actor from the authenticated context.
func principal(c echo.Context) (service.Principal, error) {
	uid, err := getUserID(c)
	if err != nil {
		return service.Principal{}, err
	}
	role, _ := c.Get("role").(string)
	r, err := model.ParseRole(role)
	if err != nil {
		return service.Principal{}, err
	}
	return service.Principal{UserID: uid, Role: r}, nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:           http.StatusBadRequest,
	apperr.KindNotFound:             http.StatusNotFound,
	apperr.KindConflict:             http.StatusConflict,
	apperr.KindInsufficientFunds:    http.StatusUnprocessableEntity,
	apperr.KindReferentialIntegrity: http.StatusConflict,
	apperr.KindDomainConstraint:     http.StatusUnprocessableEntity,
	apperr.KindForbidden:            http.StatusForbidden,
}

// writeError renders err as {"error", "kind"}.  Unclassified errors are
// logged and reported as a generic 500.
func writeError(c echo.Context, log *logrus.Logger, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "invalid request",
			"kind":   apperr.KindValidation,
			"fields": fields,
		})
	}

	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError || kind == apperr.KindReferentialIntegrity || kind == apperr.KindDomainConstraint {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"route":  c.Path(),
			"kind":   kind,
		}).Error("request failed")
	}
	return c.JSON(status, echo.Map{"error": apperr.Message(err), "kind": kind})
}
