package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"reservas/internal/domain"
	"reservas/internal/export"
	"reservas/internal/models"
	"reservas/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	msgNotFound    = "Reserva não encontrada"
	msgInvalidBody = "Corpo da requisição inválido"
	msgServerError = "Erro interno do servidor"
)

type reservationHandlers struct {
	service domain.ReservationService
	logger  *zerolog.Logger
}

func (h *reservationHandlers) list(c echo.Context) error {
	list, err := h.service.List(c.Request().Context(), filterFromQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *reservationHandlers) get(c echo.Context) error {
	r, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *reservationHandlers) create(c echo.Context) error {
	patch, err := readPatch(c)
	if err != nil {
		return h.fail(c, err)
	}
	r, err := h.service.Create(c.Request().Context(), patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *reservationHandlers) update(c echo.Context) error {
	patch, err := readPatch(c)
	if err != nil {
		return h.fail(c, err)
	}
	r, err := h.service.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *reservationHandlers) delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *reservationHandlers) export(c echo.Context) error {
	list, err := h.service.List(c.Request().Context(), filterFromQuery(c))
	if err != nil {
		return h.fail(c, err)
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, list); err != nil {
		return h.fail(c, err)
	}

	filename := fmt.Sprintf("reservas_%s.xlsx", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

// fail maps service errors onto plain text responses.
func (h *reservationHandlers) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.String(http.StatusNotFound, msgNotFound)
	case errors.Is(err, service.ErrInvalidBody):
		return c.String(http.StatusBadRequest, msgInvalidBody)
	default:
		h.logger.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Msg("request failed")
		return c.String(http.StatusInternalServerError, msgServerError)
	}
}

// readPatch decodes the request body as a JSON object. An empty body (or a
// literal null) is an empty patch.
func readPatch(c echo.Context) (models.Patch, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", service.ErrInvalidBody, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return models.Patch{}, nil
	}

	var patch models.Patch
	if err := json.Unmarshal(body, &patch); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidBody, err)
	}
	if patch == nil {
		patch = models.Patch{}
	}
	return patch, nil
}

func filterFromQuery(c echo.Context) models.Filter {
	return models.Filter{
		Search: c.QueryParam("search"),
		Status: c.QueryParam("status"),
	}
}
