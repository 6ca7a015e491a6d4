package repository

import (
	"context"
	"time"

	"github.com/atypikhouse/booking-service/internal/models"
	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindByProperty(ctx context.Context, propertyID uint, status *models.BookingStatus) ([]models.Booking, error)
	FindByRequester(ctx context.Context, requesterID string) ([]models.Booking, error)
	FindOverlapping(ctx context.Context, tx *gorm.DB, propertyID uint, startDate, endDate time.Time, excludeID uint) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate reads the booking under a row-level lock within the
// given transaction, so concurrent status transitions on the same booking
// serialize and always see the committed status.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByProperty(ctx context.Context, propertyID uint, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Where("property_id = ?", propertyID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("start_date ASC, id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindByRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Order("start_date ASC, id ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindOverlapping returns the active (pending/confirmed) bookings on the
// property whose [start_date, end_date) range overlaps the given one, using
// the half-open test: existing.start < end AND existing.end > start.
// excludeID, when non-zero, leaves out one booking so a pending booking can
// be re-validated against the live conflict set at confirmation time.
func (r *bookingRepository) FindOverlapping(ctx context.Context, tx *gorm.DB, propertyID uint, startDate, endDate time.Time, excludeID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	q := tx.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Where("status IN ?", []models.BookingStatus{models.StatusPending, models.StatusConfirmed}).
		Where("start_date < ? AND end_date > ?", endDate, startDate)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status).Error
}
