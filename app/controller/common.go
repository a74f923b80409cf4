package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/fees"
	"github.com/vibast-solutions/ms-go-fees/app/service"
	"github.com/vibast-solutions/ms-go-fees/app/types"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

func (c *HealthController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

// writeServiceError classifies service errors shared by the internal
// endpoints. Anything unrecognised is logged and reported as a 500.
func writeServiceError(ctx echo.Context, logger logrus.FieldLogger, err error, operation string) error {
	var transitionErr *service.TransitionError
	switch {
	case errors.As(err, &transitionErr):
		return ctx.JSON(http.StatusConflict, &types.ErrorResponse{
			Error:         transitionErr.Error(),
			CurrentStatus: string(transitionErr.Current),
		})
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrUnknownFeeField):
		return writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrOrganizerNotFound):
		return writeError(ctx, http.StatusNotFound, "organizer not found")
	case errors.Is(err, service.ErrOrderNotFound):
		return writeError(ctx, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrRefundNotFound):
		return writeError(ctx, http.StatusNotFound, "refund request not found")
	case errors.Is(err, fees.ErrCurrencyNotConfigured):
		return writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRefundAlreadyExists), errors.Is(err, service.ErrOrderAlreadyExists),
		errors.Is(err, service.ErrOrganizerExists):
		return writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, fees.ErrStoreUnavailable), errors.Is(err, service.ErrConcurrentUpdate):
		logger.WithError(err).Warn(operation + " temporarily unavailable")
		return writeError(ctx, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		logger.WithError(err).Error(operation + " failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}
