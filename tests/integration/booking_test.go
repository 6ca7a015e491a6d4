//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/atypikhouse/booking-service/internal/models"
	"github.com/atypikhouse/booking-service/internal/repository"
	"github.com/atypikhouse/booking-service/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var propertyIDCounter uint = 0

func nextPropertyID() uint {
	propertyIDCounter++
	return propertyIDCounter
}

func createTestProperty(t *testing.T, name string, nightlyRate float64, maxGuests int) *models.Property {
	t.Helper()
	property := &models.Property{
		ID:          nextPropertyID(),
		Name:        name,
		Category:    "treehouse",
		OwnerID:     "owner-1",
		NightlyRate: nightlyRate,
		MaxGuests:   maxGuests,
		IsAvailable: true,
	}
	require.NoError(t, testDB.Create(property).Error)
	return property
}

func newBookingService() service.BookingService {
	propertyRepo := repository.NewPropertyRepository(testDB)
	bookingRepo := repository.NewBookingRepository(testDB)
	return service.NewBookingService(bookingRepo, propertyRepo, nil)
}

func dateFromNow(n int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func bookingRequest(propertyID uint, requesterID string, start, end, guests int) service.BookingRequest {
	return service.BookingRequest{
		PropertyID:  propertyID,
		RequesterID: requesterID,
		StartDate:   dateFromNow(start),
		EndDate:     dateFromNow(end),
		GuestCount:  guests,
	}
}

var (
	ownerActor     = service.Actor{ID: "owner-1", Role: service.RoleOwner}
	adminActor     = service.Actor{ID: "admin-1", Role: service.RoleAdmin}
	requesterActor = service.Actor{ID: "traveler-1", Role: service.RoleTraveler}
)

// Test: 10 travelers request the same dates concurrently → exactly one
// booking is created, the rest are rejected, and the DB holds one active row.
func TestConcurrentOverlappingRequests(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Dome des Vosges", 120, 4)
	svc := newBookingService()

	attempts := 10
	var wg sync.WaitGroup
	results := make(chan *models.Booking, attempts)
	errs := make(chan error, attempts)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(idx int) {
			defer wg.Done()
			requester := fmt.Sprintf("traveler-%03d", idx)
			booking, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, requester, 5, 8, 2))
			if err != nil {
				errs <- err
				return
			}
			results <- booking
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	created := 0
	for range results {
		created++
	}
	rejected := 0
	for err := range errs {
		assert.ErrorIs(t, err, service.ErrDatesUnavailable)
		rejected++
	}

	assert.Equal(t, 1, created, "exactly one concurrent request should win the date range")
	assert.Equal(t, attempts-1, rejected)

	var active int64
	testDB.Model(&models.Booking{}).
		Where("property_id = ? AND status IN ?", property.ID, []string{"pending", "confirmed"}).
		Count(&active)
	assert.Equal(t, int64(1), active)
}

func TestBackToBackStays(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Cabane du Lac", 100, 4)
	svc := newBookingService()

	first, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 2))
	require.NoError(t, err)

	// second stay starts exactly on the first stay's checkout date
	second, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-2", 8, 10, 2))
	require.NoError(t, err)

	assert.Equal(t, first.EndDate, second.StartDate)
}

func TestOverlapWithConfirmedRejected(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Yourte des Cimes", 100, 4)
	svc := newBookingService()

	booking, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 2))
	require.NoError(t, err)
	_, err = svc.ConfirmBooking(context.Background(), booking.ID, ownerActor)
	require.NoError(t, err)

	_, err = svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-2", 6, 9, 2))
	assert.ErrorIs(t, err, service.ErrDatesUnavailable)
}

func TestPriceComputation(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Maison Flottante", 100, 4)
	svc := newBookingService()

	booking, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 2))
	require.NoError(t, err)

	assert.Equal(t, 300.0, booking.TotalPrice)
	assert.Equal(t, models.StatusPending, booking.Status)
	assert.NotEmpty(t, booking.Reference)
}

func TestCapacityExceeded(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Petit Dome", 100, 4)
	svc := newBookingService()

	_, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 5))
	assert.ErrorIs(t, err, service.ErrCapacityExceeded)
}

func TestStartDateInPast(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Cabane Perchee", 100, 4)
	svc := newBookingService()

	_, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", -1, 2, 2))
	assert.ErrorIs(t, err, service.ErrStartDateInPast)
}

func TestLifecycle_ConfirmThenCancelFreesCalendar(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Bulle Etoilee", 100, 2)
	svc := newBookingService()

	booking, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 2))
	require.NoError(t, err)

	confirmed, err := svc.ConfirmBooking(context.Background(), booking.ID, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	cancelled, err := svc.CancelBooking(context.Background(), booking.ID, requesterActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// the cancelled slot frees the calendar for someone else
	_, err = svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-2", 5, 8, 2))
	assert.NoError(t, err)
}

func TestLifecycle_CompleteByAdmin(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Tiny House", 100, 2)
	svc := newBookingService()

	booking, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 2))
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), booking.ID, adminActor)
	require.NoError(t, err)

	completed, err := svc.CompleteBooking(context.Background(), booking.ID, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
}

func TestLifecycle_UnauthorizedConfirm(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Roulotte", 100, 2)
	svc := newBookingService()

	booking, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 2))
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), booking.ID, requesterActor)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	otherOwner := service.Actor{ID: "owner-2", Role: service.RoleOwner}
	_, err = svc.ConfirmBooking(context.Background(), booking.ID, otherOwner)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestLifecycle_CancellationCutoff(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Cabane Ancienne", 100, 2)
	svc := newBookingService()

	// a confirmed stay that already began, seeded directly
	booking := &models.Booking{
		Reference:   uuid.NewString(),
		PropertyID:  property.ID,
		RequesterID: "traveler-1",
		StartDate:   dateFromNow(-1),
		EndDate:     dateFromNow(2),
		GuestCount:  2,
		TotalPrice:  300,
		Status:      models.StatusConfirmed,
	}
	require.NoError(t, testDB.Create(booking).Error)

	_, err := svc.CancelBooking(context.Background(), booking.ID, requesterActor)
	assert.ErrorIs(t, err, service.ErrAlreadyStarted)
}

func TestLifecycle_TerminalStatesAreSinks(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Dome Boreal", 100, 2)
	svc := newBookingService()

	booking, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 2))
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), booking.ID, requesterActor)
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), booking.ID, ownerActor)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	_, err = svc.CancelBooking(context.Background(), booking.ID, requesterActor)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

// Test: the exclusion constraint rejects an overlapping active booking even
// when it is inserted behind the service's back.
func TestExclusionConstraintBackstop(t *testing.T) {
	cleanTables()
	property := createTestProperty(t, "Cabane Gardee", 100, 4)
	svc := newBookingService()

	_, err := svc.CreateBooking(context.Background(), bookingRequest(property.ID, "traveler-1", 5, 8, 2))
	require.NoError(t, err)

	rogue := &models.Booking{
		Reference:   uuid.NewString(),
		PropertyID:  property.ID,
		RequesterID: "traveler-2",
		StartDate:   dateFromNow(6),
		EndDate:     dateFromNow(9),
		GuestCount:  2,
		TotalPrice:  300,
		Status:      models.StatusPending,
	}
	err = testDB.Create(rogue).Error
	assert.Error(t, err, "raw overlapping insert must violate bookings_no_overlap")
}
