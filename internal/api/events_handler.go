package api

import (
	"context"
	"net/http"
	"strconv"

	"reservas/internal/events"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const defaultRecentEvents = 20

// RecentEventsSource reads the latest change events, newest first.
type RecentEventsSource interface {
	Recent(ctx context.Context, n int64) ([]events.Event, error)
}

type eventHandlers struct {
	source RecentEventsSource
	logger *zerolog.Logger
}

func (h *eventHandlers) recent(c echo.Context) error {
	limit := int64(defaultRecentEvents)
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return c.String(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, events.RecentLimit)
	}

	list, err := h.source.Recent(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("read recent events")
		return c.String(http.StatusInternalServerError, msgServerError)
	}
	return c.JSON(http.StatusOK, list)
}
