package repositories

import (
	"context"
	"strings"
	"sync"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
)

// MemoryStore keeps trips, bookings and users in process memory. It is the
// default backend for local runs and the store double in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	trips    map[string]*models.Trip
	tripSeq  []string
	bookings map[string]models.Booking
	bookSeq  []string
	users    map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:    map[string]*models.Trip{},
		bookings: map[string]models.Booking{},
		users:    map[string]models.User{},
	}
}

func (s *MemoryStore) GetTrip(ctx context.Context, id string) (models.Trip, error) {
	if err := ctx.Err(); err != nil {
		return models.Trip{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[id]
	if !ok {
		return models.Trip{}, domain.NotFoundError{Resource: "trip", ID: id}
	}
	return t.Clone(), nil
}

func (s *MemoryStore) ListTrips(ctx context.Context, q models.TripQuery) ([]models.Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Trip{}
	for _, id := range s.tripSeq {
		t := s.trips[id]
		if matchTrip(*t, q) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateTrip(ctx context.Context, t models.Trip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[t.ID]; ok {
		return domain.ValidationError{Field: "id", Msg: "trip already exists"}
	}
	cp := t.Clone()
	s.trips[t.ID] = &cp
	s.tripSeq = append(s.tripSeq, t.ID)
	return nil
}

// CommitReservation re-checks and flips every seat and stores b under one lock.
func (s *MemoryStore) CommitReservation(ctx context.Context, b models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trips[b.TripID]
	if !ok {
		return domain.NotFoundError{Resource: "trip", ID: b.TripID}
	}
	idx := make(map[string]int, len(t.Seats))
	for i, seat := range t.Seats {
		idx[seat.Number] = i
	}
	var missing, taken []string
	for _, n := range b.SeatNumbers {
		i, ok := idx[n]
		switch {
		case !ok:
			missing = append(missing, n)
		case t.Seats[i].IsBooked:
			taken = append(taken, n)
		}
	}
	if len(missing) > 0 {
		return domain.InvalidSeatError{Seats: missing, Msg: "seats not on trip"}
	}
	if len(taken) > 0 {
		return domain.SeatConflictError{TripID: b.TripID, Seats: taken}
	}
	if _, dup := s.bookings[b.ID]; dup {
		return domain.InternalError{Msg: "duplicate booking id " + b.ID}
	}

	for _, n := range b.SeatNumbers {
		t.Seats[idx[n]].IsBooked = true
	}
	s.bookings[b.ID] = b.Clone()
	s.bookSeq = append(s.bookSeq, b.ID)
	return nil
}

func (s *MemoryStore) ReleaseBooking(ctx context.Context, id string) (models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
	}
	if t, ok := s.trips[b.TripID]; ok {
		release := make(map[string]bool, len(b.SeatNumbers))
		for _, n := range b.SeatNumbers {
			release[n] = true
		}
		for i := range t.Seats {
			if release[t.Seats[i].Number] {
				t.Seats[i].IsBooked = false
			}
		}
	}
	delete(s.bookings, id)
	for i, bid := range s.bookSeq {
		if bid == id {
			s.bookSeq = append(s.bookSeq[:i], s.bookSeq[i+1:]...)
			break
		}
	}
	return b, nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return models.Booking{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
	}
	return b.Clone(), nil
}

func (s *MemoryStore) ListBookingsByPassenger(ctx context.Context, name string) ([]models.BookingDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.BookingDetail{}
	for _, id := range s.bookSeq {
		b := s.bookings[id]
		if b.PassengerName != name {
			continue
		}
		d := models.BookingDetail{Booking: b.Clone()}
		if t, ok := s.trips[b.TripID]; ok {
			d.Trip = models.SummaryOf(*t)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.users[key]; ok {
		return domain.ValidationError{Field: "email", Msg: "user already exists"}
	}
	s.users[key] = u
	return nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

// BookedSeatTotals returns, per trip, the number of seats flagged booked and
// the number of seats referenced by bookings. Used to audit the inventory
// invariant.
func (s *MemoryStore) BookedSeatTotals() map[string][2]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][2]int, len(s.trips))
	for id, t := range s.trips {
		out[id] = [2]int{t.BookedCount(), 0}
	}
	for _, b := range s.bookings {
		v := out[b.TripID]
		v[1] += len(b.SeatNumbers)
		out[b.TripID] = v
	}
	return out
}

func matchTrip(t models.Trip, q models.TripQuery) bool {
	eq := func(field, want string) bool {
		want = strings.TrimSpace(want)
		return want == "" || strings.EqualFold(strings.TrimSpace(field), want)
	}
	return eq(t.Source, q.Source) && eq(t.Destination, q.Destination) && eq(t.Date, q.Date)
}
