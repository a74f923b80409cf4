package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	// CurrentStatus is set on conflicts so callers can decide to no-op.
	CurrentStatus string `json:"current_status,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// IDRequest carries the :id path parameter shared by the lookup endpoints.
type IDRequest struct {
	ID string
}

func NewIDRequestFromContext(ctx echo.Context) (*IDRequest, error) {
	return &IDRequest{ID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *IDRequest) Validate() error {
	if r.ID == "" {
		return errors.New("id is required")
	}
	return nil
}

func validCurrency(currency string) bool {
	if len(currency) != 3 {
		return false
	}
	for _, c := range currency {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
