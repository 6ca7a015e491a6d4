package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// IsActive reports whether the booking counts toward availability.
// Cancelled and completed bookings free the calendar.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal reports whether no further transitions are permitted.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Booking holds a stay over the half-open date range [StartDate, EndDate):
// the checkout day is free for the next guest's check-in.
type Booking struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Reference   string        `gorm:"type:varchar(36);not null;uniqueIndex" json:"reference"`
	PropertyID  uint          `gorm:"not null;index" json:"property_id"`
	RequesterID string        `gorm:"not null;index" json:"requester_id"`
	StartDate   time.Time     `gorm:"type:date;not null" json:"start_date"`
	EndDate     time.Time     `gorm:"type:date;not null" json:"end_date"`
	GuestCount  int           `gorm:"not null" json:"guest_count"`
	TotalPrice  float64       `gorm:"not null" json:"total_price"`
	Status      BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
