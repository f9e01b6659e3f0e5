package services

import (
	"context"

	"busyatri/internal/domain/models"
	"busyatri/internal/notify"

	"github.com/google/uuid"
)

// TripStore holds trip and seat-map records.
type TripStore interface {
	GetTrip(ctx context.Context, id string) (models.Trip, error)
	ListTrips(ctx context.Context, q models.TripQuery) ([]models.Trip, error)
	CreateTrip(ctx context.Context, t models.Trip) error
}

// BookingStore holds booking records and applies the seat/booking writes as
// one unit.
type BookingStore interface {
	// CommitReservation re-verifies that every seat in b is free, marks them
	// booked and persists b atomically. It returns SeatConflictError when any
	// seat changed since it was read.
	CommitReservation(ctx context.Context, b models.Booking) error
	// ReleaseBooking frees the booking's seats and removes it atomically.
	ReleaseBooking(ctx context.Context, id string) (models.Booking, error)
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	ListBookingsByPassenger(ctx context.Context, name string) ([]models.BookingDetail, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Store is everything the HTTP layer needs from a backend.
type Store interface {
	TripStore
	BookingStore
	UserStore
}

// Notifier accepts booking notifications without waiting for delivery.
type Notifier interface {
	Enqueue(msg notify.Message) (string, error)
}

// IDGenerator is implemented by stores whose records need ids in a
// backend-specific form.
type IDGenerator interface {
	NewID() string
}

// idSource returns the store's id generator, or random UUIDs.
func idSource(store interface{}) func() string {
	if g, ok := store.(IDGenerator); ok {
		return g.NewID
	}
	return uuid.NewString
}
