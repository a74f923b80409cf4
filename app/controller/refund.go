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

type RefundController struct {
	refundService *service.RefundService
	logger        logrus.FieldLogger
}

func NewRefundController(refundService *service.RefundService) *RefundController {
	return &RefundController{
		refundService: refundService,
		logger:        factory.NewModuleLogger("refunds-controller"),
	}
}

func (c *RefundController) CreateRefund(ctx echo.Context) error {
	req, err := types.NewCreateRefundRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.refundService.RouteRefund(ctx.Request().Context(), service.RouteRefundInput{
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Reason:   req.Reason,
		ActorRef: req.ActorRef,
	})
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Route refund")
	}

	return ctx.JSON(http.StatusCreated, &types.RefundEnvelopeResponse{Refund: mapper.RefundToResponse(item)})
}

func (c *RefundController) GetRefund(ctx echo.Context) error {
	req, err := types.NewIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.refundService.GetRefund(ctx.Request().Context(), req.ID)
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Get refund")
	}

	return ctx.JSON(http.StatusOK, &types.RefundEnvelopeResponse{Refund: mapper.RefundToResponse(item)})
}

func (c *RefundController) Decide(ctx echo.Context) error {
	req, err := types.NewDecideRefundRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	decision, _ := service.ParseDecision(req.Decision)
	actor, _ := service.ParseActor(req.Actor)

	item, err := c.refundService.Decide(ctx.Request().Context(), service.DecideInput{
		RefundID:         req.RefundID,
		Decision:         decision,
		Actor:            actor,
		ActorOrganizerID: req.OrganizerID,
		ActorRef:         req.ActorRef,
		ProcessorRef:     req.ProcessorRef,
		Notes:            req.Notes,
	})
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Refund decision")
	}

	return ctx.JSON(http.StatusOK, &types.RefundEnvelopeResponse{Refund: mapper.RefundToResponse(item)})
}
