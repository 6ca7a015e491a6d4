package handler

import (
	"net/http"
	"strconv"

	"github.com/atypikhouse/booking-service/internal/dto"
	"github.com/atypikhouse/booking-service/internal/repository"
	"github.com/atypikhouse/booking-service/internal/service"
	"github.com/labstack/echo/v4"
)

type PropertyHandler struct {
	svc          service.BookingService
	propertyRepo repository.PropertyRepository
}

func NewPropertyHandler(svc service.BookingService, propertyRepo repository.PropertyRepository) *PropertyHandler {
	return &PropertyHandler{svc: svc, propertyRepo: propertyRepo}
}

func (h *PropertyHandler) RegisterRoutes(e *echo.Echo) {
	properties := e.Group("/api/v1/properties")
	properties.GET("", h.ListProperties)
	properties.GET("/:id", h.GetProperty)
	properties.GET("/:id/calendar", h.GetCalendar)
	properties.GET("/:id/quote", h.QuoteBooking)
}

func (h *PropertyHandler) ListProperties(c echo.Context) error {
	onlyAvailable := c.QueryParam("available") == "true"
	category := c.QueryParam("category")

	properties, err := h.propertyRepo.FindAll(c.Request().Context(), category, onlyAvailable)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	resp := make([]dto.PropertyResponse, len(properties))
	for i, p := range properties {
		resp[i] = dto.ToPropertyResponse(&p)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PropertyHandler) GetProperty(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	property, err := h.propertyRepo.FindByID(c.Request().Context(), uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "property not found")
	}

	return c.JSON(http.StatusOK, dto.ToPropertyResponse(property))
}

// GetCalendar returns the occupied date ranges of a property: the half-open
// intervals of its active bookings, without requester details.
func (h *PropertyHandler) GetCalendar(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	if _, err := h.propertyRepo.FindByID(c.Request().Context(), uint(id)); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "property not found")
	}

	bookings, err := h.svc.ListByProperty(c.Request().Context(), uint(id), nil)
	if err != nil {
		return toHTTPError(err)
	}

	entries := make([]dto.CalendarEntryResponse, 0, len(bookings))
	for _, b := range bookings {
		if b.Status.IsActive() {
			entries = append(entries, dto.ToCalendarEntryResponse(&b))
		}
	}
	return c.JSON(http.StatusOK, entries)
}

// QuoteBooking runs the admission checks and prices the stay without
// creating a booking.
func (h *PropertyHandler) QuoteBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	startDate, endDate, err := parseDates(c.QueryParam("start_date"), c.QueryParam("end_date"))
	if err != nil {
		return err
	}

	guests, err := strconv.Atoi(c.QueryParam("guests"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "guests must be an integer")
	}

	quote, err := h.svc.QuoteBooking(c.Request().Context(), service.BookingRequest{
		PropertyID:  uint(id),
		RequesterID: c.Request().Header.Get("X-User-ID"),
		StartDate:   startDate,
		EndDate:     endDate,
		GuestCount:  guests,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.QuoteResponse{
		PropertyID:  uint(id),
		StartDate:   startDate.Format(dto.DateLayout),
		EndDate:     endDate.Format(dto.DateLayout),
		GuestCount:  guests,
		Nights:      quote.Nights,
		NightlyRate: quote.NightlyRate,
		TotalPrice:  quote.TotalPrice,
	})
}
