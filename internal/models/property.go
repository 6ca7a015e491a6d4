package models

import "time"

// Property is the local read model of a lodging, synced from the
// property catalog service. The booking engine never mutates it.
type Property struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Category    string    `gorm:"type:varchar(40);not null" json:"category"`
	OwnerID     string    `gorm:"not null;index" json:"owner_id"`
	NightlyRate float64   `gorm:"not null" json:"nightly_rate"`
	MaxGuests   int       `gorm:"not null" json:"max_guests"`
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
