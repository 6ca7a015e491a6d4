package dto

// DateLayout is the wire format for calendar dates. Bookings carry no
// time-of-day semantics.
const DateLayout = "2006-01-02"

type CreateBookingRequest struct {
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	GuestCount int    `json:"guest_count"`
}
