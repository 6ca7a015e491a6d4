package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atypikhouse/booking-service/internal/dto"
	"github.com/atypikhouse/booking-service/internal/models"
	"github.com/atypikhouse/booking-service/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	properties := e.Group("/api/v1/properties")
	properties.POST("/:id/bookings", h.CreateBooking)
	properties.GET("/:id/bookings", h.ListPropertyBookings)

	bookings := e.Group("/api/v1/bookings")
	bookings.GET("", h.ListMyBookings)
	bookings.GET("/:id", h.GetBooking)
	bookings.POST("/:id/confirm", h.ConfirmBooking)
	bookings.POST("/:id/complete", h.CompleteBooking)
	bookings.DELETE("/:id", h.CancelBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	propertyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	startDate, endDate, err := parseDates(req.StartDate, req.EndDate)
	if err != nil {
		return err
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), service.BookingRequest{
		PropertyID:  uint(propertyID),
		RequesterID: actor.ID,
		StartDate:   startDate,
		EndDate:     endDate,
		GuestCount:  req.GuestCount,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	return h.transition(c, h.svc.ConfirmBooking)
}

func (h *BookingHandler) CompleteBooking(c echo.Context) error {
	return h.transition(c, h.svc.CompleteBooking)
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	return h.transition(c, h.svc.CancelBooking)
}

func (h *BookingHandler) transition(c echo.Context, op func(ctx context.Context, bookingID uint, actor service.Actor) (*models.Booking, error)) error {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	booking, err := op(c.Request().Context(), uint(bookingID), actor)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), uint(id))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	bookings, err := h.svc.ListByRequester(c.Request().Context(), actor.ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) ListPropertyBookings(c echo.Context) error {
	propertyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	var status *models.BookingStatus
	if s := c.QueryParam("status"); s != "" {
		bs := models.BookingStatus(s)
		status = &bs
	}

	bookings, err := h.svc.ListByProperty(c.Request().Context(), uint(propertyID), status)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func toBookingResponses(bookings []models.Booking) []dto.BookingResponse {
	resp := make([]dto.BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = dto.ToBookingResponse(&b)
	}
	return resp
}

// actorFrom reads the trusted identity headers supplied by the auth gateway.
func actorFrom(c echo.Context) (service.Actor, error) {
	id := c.Request().Header.Get("X-User-ID")
	if id == "" {
		return service.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing X-User-ID header")
	}

	role := c.Request().Header.Get("X-User-Role")
	switch role {
	case service.RoleTraveler, service.RoleOwner, service.RoleAdmin:
	default:
		return service.Actor{}, echo.NewHTTPError(http.StatusBadRequest, "invalid X-User-Role header")
	}

	return service.Actor{ID: id, Role: role}, nil
}

func parseDates(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse(dto.DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "start_date must be formatted YYYY-MM-DD")
	}
	endDate, err := time.Parse(dto.DateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "end_date must be formatted YYYY-MM-DD")
	}
	return startDate, endDate, nil
}

// toHTTPError maps service errors to status codes in one place. Anything
// unclassified is treated as a storage failure the caller may retry.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrPropertyNotFound),
		errors.Is(err, service.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStartDateInPast),
		errors.Is(err, service.ErrEndBeforeStart),
		errors.Is(err, service.ErrCapacityExceeded):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDatesUnavailable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyStarted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
}
