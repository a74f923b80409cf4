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

type OrderController struct {
	orderService *service.OrderService
	logger       logrus.FieldLogger
}

func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
		logger:       factory.NewModuleLogger("orders-controller"),
	}
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.orderService.CreateOrder(ctx.Request().Context(), service.CreateOrderInput{
		ID:          req.ID,
		OrganizerID: req.OrganizerID,
		EventRef:    req.EventRef,
		PayerRef:    req.PayerRef,
		Currency:    req.Currency,
		Provider:    req.Provider,
		Subtotal:    req.Subtotal,
		TicketCount: req.TicketCount,
	})
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Create order")
	}

	return ctx.JSON(http.StatusCreated, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(item)})
}

func (c *OrderController) GetOrder(ctx echo.Context) error {
	req, err := types.NewIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.orderService.GetOrder(ctx.Request().Context(), req.ID)
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Get order")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(item)})
}
