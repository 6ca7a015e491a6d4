package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/atypikhouse/booking-service/internal/models"
	"gorm.io/gorm"
)

const (
	RoleTraveler = "traveler"
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
)

// Actor is the caller identity supplied by the identity collaborator.
// The engine trusts it and does not re-derive identity.
type Actor struct {
	ID   string
	Role string
}

var lifecycleRoutingKeys = map[models.BookingStatus]string{
	models.StatusConfirmed: "booking.confirmed",
	models.StatusCancelled: "booking.cancelled",
	models.StatusCompleted: "booking.completed",
}

func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.StatusConfirmed, actor)
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.StatusCancelled, actor)
}

func (s *bookingService) CompleteBooking(ctx context.Context, bookingID uint, actor Actor) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.StatusCompleted, actor)
}

func (s *bookingService) transition(ctx context.Context, bookingID uint, target models.BookingStatus, actor Actor) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.applyTransition(ctx, tx, bookingID, target, actor)
		if err != nil {
			return err
		}
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(lifecycleRoutingKeys[target], result); err != nil {
			log.Printf("[RabbitMQ] failed to publish %s for booking %d: %v", lifecycleRoutingKeys[target], result.ID, err)
		}
	}
	return result, nil
}

// applyTransition runs inside the transaction. The booking row is read under
// a FOR UPDATE lock so two concurrent transitions on the same booking
// serialize; the loser re-reads the committed status instead of acting on a
// stale snapshot (a cancel racing a confirm must leave the booking cancelled).
func (s *bookingService) applyTransition(ctx context.Context, tx *gorm.DB, bookingID uint, target models.BookingStatus, actor Actor) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}

	property, err := s.propertyRepo.FindByIDForUpdate(ctx, tx, booking.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("load property: %w", err)
	}

	if err := authorizeTransition(booking, property, target, actor, time.Now().UTC()); err != nil {
		return nil, err
	}

	// Confirmation re-checks the live conflict set: another active
	// booking may have appeared since this one was created.
	if target == models.StatusConfirmed {
		conflicts, err := s.bookingRepo.FindOverlapping(ctx, tx, booking.PropertyID, booking.StartDate, booking.EndDate, booking.ID)
		if err != nil {
			return nil, fmt.Errorf("conflict query: %w", err)
		}
		if len(conflicts) > 0 {
			return nil, ErrDatesUnavailable
		}
	}

	if err := s.bookingRepo.UpdateStatus(ctx, tx, booking.ID, target); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	booking.Status = target
	return booking, nil
}

// authorizeTransition is the single place the transition/authorization table
// lives. Legality of the edge is checked first, then the actor, then any
// timing precondition.
//
//	pending   -> confirmed   property owner or admin
//	pending   -> cancelled   requester, property owner, or admin
//	confirmed -> cancelled   requester, property owner, or admin; stay not started
//	confirmed -> completed   property owner or admin
//	cancelled, completed     terminal, no transitions
func authorizeTransition(booking *models.Booking, property *models.Property, target models.BookingStatus, actor Actor, now time.Time) error {
	if booking.Status.IsTerminal() {
		return ErrInvalidTransition
	}

	switch {
	case booking.Status == models.StatusPending && target == models.StatusConfirmed:
		if !actorManagesProperty(actor, property) {
			return ErrUnauthorized
		}

	case booking.Status == models.StatusPending && target == models.StatusCancelled:
		if !isRequester(actor, booking) && !actorManagesProperty(actor, property) {
			return ErrUnauthorized
		}

	case booking.Status == models.StatusConfirmed && target == models.StatusCancelled:
		if !isRequester(actor, booking) && !actorManagesProperty(actor, property) {
			return ErrUnauthorized
		}
		if !booking.StartDate.After(now) {
			return ErrAlreadyStarted
		}

	case booking.Status == models.StatusConfirmed && target == models.StatusCompleted:
		if !actorManagesProperty(actor, property) {
			return ErrUnauthorized
		}

	default:
		return ErrInvalidTransition
	}

	return nil
}

func actorManagesProperty(actor Actor, property *models.Property) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return actor.Role == RoleOwner && actor.ID == property.OwnerID
}

func isRequester(actor Actor, booking *models.Booking) bool {
	return actor.ID == booking.RequesterID
}
