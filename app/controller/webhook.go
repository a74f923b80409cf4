package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
	"github.com/vibast-solutions/ms-go-fees/app/mapper"
	"github.com/vibast-solutions/ms-go-fees/app/service"
	"github.com/vibast-solutions/ms-go-fees/app/types"
)

type WebhookController struct {
	webhookService *service.WebhookService
	logger         logrus.FieldLogger
}

func NewWebhookController(webhookService *service.WebhookService) *WebhookController {
	return &WebhookController{
		webhookService: webhookService,
		logger:         factory.NewModuleLogger("webhooks-controller"),
	}
}

// Ingest answers the provider. Any non-2xx makes the provider redeliver, so
// only failures worth retrying are reported as server errors.
func (c *WebhookController) Ingest(ctx echo.Context) error {
	req, err := types.NewWebhookRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	l := factory.LoggerWithContext(c.logger, ctx).WithField("provider", req.Provider)

	result, err := c.webhookService.Ingest(ctx.Request().Context(), service.IngestInput{
		Provider:  req.Provider,
		Signature: req.Signature,
		Payload:   req.Payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProviderUnsupported):
			return writeError(ctx, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrSignatureRejected):
			l.WithError(err).Warn("Webhook signature rejected")
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidRequest):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			l.WithError(err).Error("Webhook processing failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	statusCode := http.StatusOK
	if result.Accepted {
		statusCode = http.StatusAccepted
	}
	return ctx.JSON(statusCode, mapper.WebhookResultToResponse(result))
}
