package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
	"github.com/vibast-solutions/ms-go-fees/app/mapper"
	"github.com/vibast-solutions/ms-go-fees/app/service"
	"github.com/vibast-solutions/ms-go-fees/app/types"
)

type FeeController struct {
	feeService *service.FeeService
	logger     logrus.FieldLogger
}

func NewFeeController(feeService *service.FeeService) *FeeController {
	return &FeeController{
		feeService: feeService,
		logger:     factory.NewModuleLogger("fees-controller"),
	}
}

func (c *FeeController) Quote(ctx echo.Context) error {
	req, err := types.NewQuoteFeesRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	quote, err := c.feeService.Quote(ctx.Request().Context(), service.QuoteInput{
		OrganizerID: req.OrganizerID,
		Currency:    req.Currency,
		Provider:    req.Provider,
		Subtotal:    req.Subtotal,
		TicketCount: req.TicketCount,
	})
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Quote fees")
	}

	return ctx.JSON(http.StatusOK, &types.QuoteEnvelopeResponse{Quote: mapper.QuoteToResponse(quote)})
}

func (c *FeeController) Parameters(ctx echo.Context) error {
	req, err := types.NewGetFeeParametersRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	params, err := c.feeService.ResolveParameters(ctx.Request().Context(), req.OrganizerID, req.Currency)
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Resolve fee parameters")
	}

	return ctx.JSON(http.StatusOK, &types.FeeParametersEnvelopeResponse{Parameters: mapper.ParametersToResponse(params)})
}

func (c *FeeController) UpdateCountryField(ctx echo.Context) error {
	req, err := types.NewUpdateCountryFeeFieldRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}
	value, err := fieldValue(req)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.feeService.UpdateCountryFeeField(ctx.Request().Context(), req.Key, req.Field, value, req.ActorRef); err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Update country fee field")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Fee config updated"})
}

func (c *FeeController) UpdateOrganizerField(ctx echo.Context) error {
	req, err := types.NewUpdateOrganizerFeeFieldRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}
	value, err := fieldValue(req)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.feeService.UpdateOrganizerOverrideField(ctx.Request().Context(), req.Key, req.Field, value, req.ActorRef); err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Update organizer fee override")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Fee override updated"})
}

func fieldValue(req *types.UpdateFeeFieldRequest) (service.FieldValue, error) {
	raw, null, err := req.RawValue()
	if err != nil {
		return service.FieldValue{}, err
	}
	return service.FieldValue{Raw: raw, Null: null}, nil
}
