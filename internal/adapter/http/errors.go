package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"collateral-ledger/internal/domain/loan"
)

// statusFor maps a domain error kind to an HTTP status. Non-domain errors are 500.
func statusFor(err error) int {
	switch loan.KindOf(err) {
	case loan.KindLoanNotFound:
		return http.StatusNotFound
	case loan.KindInvalidAmount, loan.KindInvalidDuration, loan.KindIncorrectAmount, loan.KindInvalidCaller:
		return http.StatusUnprocessableEntity
	case loan.KindNotBorrower, loan.KindNotLender:
		return http.StatusForbidden
	case loan.KindAlreadyFunded, loan.KindNotFunded, loan.KindAlreadyRepaid, loan.KindAlreadyResolved, loan.KindNotOverdue:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	var le *loan.Error
	if errors.As(err, &le) {
		return c.JSON(statusFor(err), ErrorResponse{Error: le.Message, Kind: string(le.Kind)})
	}
	slog.ErrorContext(c.Request().Context(), "http: internal error",
		"method", c.Request().Method, "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
