package repositories

import (
	"context"
	"database/sql"

	"busyatri/internal/domain/models"
)

// MySQLStore adapts the MySQL repositories to the service store contract.
type MySQLStore struct {
	Trips    TripRepo
	Bookings BookingRepo
	Users    UserRepo
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		Trips:    TripRepo{DB: db},
		Bookings: BookingRepo{DB: db},
		Users:    UserRepo{DB: db},
	}
}

func (s *MySQLStore) GetTrip(ctx context.Context, id string) (models.Trip, error) {
	return s.Trips.GetByID(ctx, id)
}

func (s *MySQLStore) ListTrips(ctx context.Context, q models.TripQuery) ([]models.Trip, error) {
	return s.Trips.List(ctx, q)
}

func (s *MySQLStore) CreateTrip(ctx context.Context, t models.Trip) error {
	return s.Trips.Create(ctx, t)
}

func (s *MySQLStore) CommitReservation(ctx context.Context, b models.Booking) error {
	return s.Bookings.Reserve(ctx, b)
}

func (s *MySQLStore) ReleaseBooking(ctx context.Context, id string) (models.Booking, error) {
	return s.Bookings.Cancel(ctx, id)
}

func (s *MySQLStore) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

func (s *MySQLStore) ListBookingsByPassenger(ctx context.Context, name string) ([]models.BookingDetail, error) {
	return s.Bookings.ListByPassenger(ctx, name)
}

func (s *MySQLStore) CreateUser(ctx context.Context, u models.User) error {
	return s.Users.Create(ctx, u)
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.Users.GetByEmail(ctx, email)
}
