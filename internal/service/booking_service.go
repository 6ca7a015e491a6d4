package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/atypikhouse/booking-service/internal/models"
	"github.com/atypikhouse/booking-service/internal/repository"
	"github.com/atypikhouse/booking-service/pkg/rabbitmq"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrPropertyNotFound  = errors.New("property not found or not available")
	ErrStartDateInPast   = errors.New("start date must be in the future")
	ErrEndBeforeStart    = errors.New("end date must be after start date")
	ErrCapacityExceeded  = errors.New("guest count must be between 1 and the property capacity")
	ErrDatesUnavailable  = errors.New("these dates are no longer available")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("booking cannot change state from its current status")
	ErrUnauthorized      = errors.New("actor is not allowed to perform this action")
	ErrAlreadyStarted    = errors.New("stay has already started and cannot be cancelled")
)

// BookingRequest is a candidate reservation. Dates are calendar dates; the
// requested range is half-open, [StartDate, EndDate).
type BookingRequest struct {
	PropertyID  uint
	RequesterID string
	StartDate   time.Time
	EndDate     time.Time
	GuestCount  int
}

// Quote is the price of an admissible reservation, computed once at
// validation time and never recomputed afterwards.
type Quote struct {
	Nights      int
	NightlyRate float64
	TotalPrice  float64
}

type BookingService interface {
	QuoteBooking(ctx context.Context, req BookingRequest) (*Quote, error)
	CreateBooking(ctx context.Context, req BookingRequest) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error)
	CompleteBooking(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListByProperty(ctx context.Context, propertyID uint, status *models.BookingStatus) ([]models.Booking, error)
	ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error)
}

type bookingService struct {
	bookingRepo  repository.BookingRepository
	propertyRepo repository.PropertyRepository
	publisher    *rabbitmq.Publisher
}

func NewBookingService(bookingRepo repository.BookingRepository, propertyRepo repository.PropertyRepository, publisher *rabbitmq.Publisher) BookingService {
	return &bookingService{
		bookingRepo:  bookingRepo,
		propertyRepo: propertyRepo,
		publisher:    publisher,
	}
}

// QuoteBooking runs the full admission check without persisting anything.
func (s *bookingService) QuoteBooking(ctx context.Context, req BookingRequest) (*Quote, error) {
	req = req.normalized()
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	property, err := s.propertyRepo.FindByID(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("load property: %w", err)
	}

	return s.admit(ctx, s.bookingRepo.GetDB(), property, req)
}

func (s *bookingService) CreateBooking(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	req = req.normalized()
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the property row — serializes concurrent booking attempts
		property, err := s.propertyRepo.FindByIDForUpdate(ctx, tx, req.PropertyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPropertyNotFound
			}
			return fmt.Errorf("load property: %w", err)
		}

		quote, err := s.admit(ctx, tx, property, req)
		if err != nil {
			return err
		}

		booking := &models.Booking{
			Reference:   uuid.NewString(),
			PropertyID:  property.ID,
			RequesterID: req.RequesterID,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			GuestCount:  req.GuestCount,
			TotalPrice:  quote.TotalPrice,
			Status:      models.StatusPending,
		}
		if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
			// The no-overlap exclusion constraint is the storage-level
			// backstop for requests that raced past the conflict query.
			if isExclusionViolation(err) {
				return ErrDatesUnavailable
			}
			return fmt.Errorf("create booking: %w", err)
		}

		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish("booking.created", result); err != nil {
			log.Printf("[RabbitMQ] failed to publish booking.created for booking %d: %v", result.ID, err)
		}
	}
	return result, nil
}

// admit applies the property-dependent checks in order (availability,
// capacity, date conflicts) and prices the stay.
func (s *bookingService) admit(ctx context.Context, tx *gorm.DB, property *models.Property, req BookingRequest) (*Quote, error) {
	if !property.IsAvailable {
		return nil, ErrPropertyNotFound
	}
	if req.GuestCount > property.MaxGuests {
		return nil, ErrCapacityExceeded
	}

	conflicts, err := s.bookingRepo.FindOverlapping(ctx, tx, property.ID, req.StartDate, req.EndDate, 0)
	if err != nil {
		return nil, fmt.Errorf("conflict query: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, ErrDatesUnavailable
	}

	nights := nightsBetween(req.StartDate, req.EndDate)
	return &Quote{
		Nights:      nights,
		NightlyRate: property.NightlyRate,
		TotalPrice:  float64(nights) * property.NightlyRate,
	}, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListByProperty(ctx context.Context, propertyID uint, status *models.BookingStatus) ([]models.Booking, error) {
	return s.bookingRepo.FindByProperty(ctx, propertyID, status)
}

func (s *bookingService) ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	return s.bookingRepo.FindByRequester(ctx, requesterID)
}

// checkRequest covers the property-independent checks: dates sane, at least
// one guest. First failure wins.
func checkRequest(req BookingRequest) error {
	if !req.StartDate.After(today()) {
		return ErrStartDateInPast
	}
	if !req.EndDate.After(req.StartDate) {
		return ErrEndBeforeStart
	}
	if req.GuestCount < 1 {
		return ErrCapacityExceeded
	}
	return nil
}

func (r BookingRequest) normalized() BookingRequest {
	r.StartDate = toDate(r.StartDate)
	r.EndDate = toDate(r.EndDate)
	return r
}

func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func today() time.Time {
	return toDate(time.Now())
}

func nightsBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
