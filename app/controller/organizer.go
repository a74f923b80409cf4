package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
	"github.com/vibast-solutions/ms-go-fees/app/mapper"
	"github.com/vibast-solutions/ms-go-fees/app/service"
	"github.com/vibast-solutions/ms-go-fees/app/types"
)

type OrganizerController struct {
	organizerService *service.OrganizerService
	logger           logrus.FieldLogger
}

func NewOrganizerController(organizerService *service.OrganizerService) *OrganizerController {
	return &OrganizerController{
		organizerService: organizerService,
		logger:           factory.NewModuleLogger("organizers-controller"),
	}
}

func (c *OrganizerController) RegisterOrganizer(ctx echo.Context) error {
	req, err := types.NewRegisterOrganizerRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.organizerService.RegisterOrganizer(ctx.Request().Context(), service.RegisterOrganizerInput{
		ID:       req.ID,
		UserRef:  req.UserRef,
		ActorRef: req.ActorRef,
	})
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Register organizer")
	}

	return ctx.JSON(http.StatusCreated, &types.OrganizerEnvelopeResponse{Organizer: mapper.OrganizerToResponse(item)})
}

func (c *OrganizerController) GetOrganizer(ctx echo.Context) error {
	req, err := types.NewIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.organizerService.GetOrganizer(ctx.Request().Context(), req.ID)
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Get organizer")
	}

	return ctx.JSON(http.StatusOK, &types.OrganizerEnvelopeResponse{Organizer: mapper.OrganizerToResponse(item)})
}

func (c *OrganizerController) SetVerificationStatus(ctx echo.Context) error {
	req, err := types.NewSetVerificationStatusRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.organizerService.SetVerificationStatus(
		ctx.Request().Context(),
		req.OrganizerID,
		entity.VerificationStatus(req.Status),
		req.ActorRef,
	)
	if err != nil {
		return writeServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Set verification status")
	}

	return ctx.JSON(http.StatusOK, &types.OrganizerEnvelopeResponse{Organizer: mapper.OrganizerToResponse(item)})
}
