package dto

import (
	"time"

	"github.com/atypikhouse/booking-service/internal/models"
)

type BookingResponse struct {
	ID          uint                 `json:"id"`
	Reference   string               `json:"reference"`
	PropertyID  uint                 `json:"property_id"`
	RequesterID string               `json:"requester_id"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	GuestCount  int                  `json:"guest_count"`
	TotalPrice  float64              `json:"total_price"`
	Status      models.BookingStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}

type QuoteResponse struct {
	PropertyID  uint    `json:"property_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	GuestCount  int     `json:"guest_count"`
	Nights      int     `json:"nights"`
	NightlyRate float64 `json:"nightly_rate"`
	TotalPrice  float64 `json:"total_price"`
}

type PropertyResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	OwnerID     string  `json:"owner_id"`
	NightlyRate float64 `json:"nightly_rate"`
	MaxGuests   int     `json:"max_guests"`
	IsAvailable bool    `json:"is_available"`
}

// CalendarEntryResponse is one occupied range on a property's calendar.
type CalendarEntryResponse struct {
	StartDate string               `json:"start_date"`
	EndDate   string               `json:"end_date"`
	Status    models.BookingStatus `json:"status"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		Reference:   b.Reference,
		PropertyID:  b.PropertyID,
		RequesterID: b.RequesterID,
		StartDate:   b.StartDate.Format(DateLayout),
		EndDate:     b.EndDate.Format(DateLayout),
		GuestCount:  b.GuestCount,
		TotalPrice:  b.TotalPrice,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
	}
}

func ToPropertyResponse(p *models.Property) PropertyResponse {
	return PropertyResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		OwnerID:     p.OwnerID,
		NightlyRate: p.NightlyRate,
		MaxGuests:   p.MaxGuests,
		IsAvailable: p.IsAvailable,
	}
}

func ToCalendarEntryResponse(b *models.Booking) CalendarEntryResponse {
	return CalendarEntryResponse{
		StartDate: b.StartDate.Format(DateLayout),
		EndDate:   b.EndDate.Format(DateLayout),
		Status:    b.Status,
	}
}
