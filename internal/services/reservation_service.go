package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
	"busyatri/internal/notify"
	"busyatri/internal/utils"
)

const (
	defaultStoreTimeout = 5 * time.Second
	// MaxPassengerNameLen matches bookings.passenger_name.
	MaxPassengerNameLen = 255
)

// ReserveInput is a validated booking request.
type ReserveInput struct {
	TripID        string
	SeatNumbers   []string
	PassengerName string
	// ExpectedTotal is the total the client displayed; zero skips the check.
	ExpectedTotal int64
}

// ReserveResult is the created booking plus the notification reference, if
// the notification was queued.
type ReserveResult struct {
	Booking         models.Booking
	NotificationRef string
}

// ReservationService turns requested seats into bookings and back.
type ReservationService struct {
	Store    Store
	Notifier Notifier
	Timeout  time.Duration

	locks *tripLocks
	now   func() time.Time
	newID func() string
}

func NewReservationService(store Store, notifier Notifier, timeout time.Duration) *ReservationService {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &ReservationService{
		Store:    store,
		Notifier: notifier,
		Timeout:  timeout,
		locks:    newTripLocks(),
		now:      utils.NowUTC,
		newID:    idSource(store),
	}
}

// Reserve books every requested seat or none of them.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (ReserveResult, error) {
	rc := domain.FromContext(ctx)
	tripID := strings.TrimSpace(in.TripID)
	name := utils.NormalizeSpace(in.PassengerName)
	if tripID == "" {
		return ReserveResult{}, domain.ValidationError{Field: "tripId", Msg: "required"}
	}
	if name == "" {
		return ReserveResult{}, domain.ValidationError{Field: "passengerName", Msg: "required"}
	}
	if utf8.RuneCountInString(name) > MaxPassengerNameLen {
		return ReserveResult{}, domain.ValidationError{Field: "passengerName", Msg: fmt.Sprintf("at most %d characters", MaxPassengerNameLen)}
	}
	seats, err := normalizeSeats(in.SeatNumbers)
	if err != nil {
		return ReserveResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	unlock, err := s.locks.acquire(ctx, tripID)
	if err != nil {
		return ReserveResult{}, domain.StoreTimeoutError{Op: "reserve", Err: err}
	}
	booking, trip, err := s.reserveLocked(ctx, tripID, seats, name, in.ExpectedTotal, rc.UserID)
	unlock()
	if err != nil {
		utils.LogEvent(rc.RequestID, "reservation", "reserve_failed", err.Error())
		return ReserveResult{}, err
	}

	utils.LogEvent(rc.RequestID, "reservation", "reserved",
		"booking "+booking.ID+" trip "+trip.ID+" seats "+utils.JoinSeats(booking.SeatNumbers))

	ref := s.notify(rc.RequestID, notify.KindBookingConfirmed, booking, trip)
	return ReserveResult{Booking: booking, NotificationRef: ref}, nil
}

func (s *ReservationService) reserveLocked(ctx context.Context, tripID string, seats []string, name string, expected int64, userID string) (models.Booking, models.Trip, error) {
	trip, err := s.Store.GetTrip(ctx, tripID)
	if err != nil {
		return models.Booking{}, models.Trip{}, storeErr("reserve", err)
	}

	var missing, taken []string
	for _, n := range seats {
		seat, ok := trip.Seat(n)
		switch {
		case !ok:
			missing = append(missing, n)
		case seat.IsBooked:
			taken = append(taken, n)
		}
	}
	if len(missing) > 0 {
		return models.Booking{}, trip, domain.InvalidSeatError{Seats: missing, Msg: "seats not on trip"}
	}
	if len(taken) > 0 {
		return models.Booking{}, trip, domain.SeatConflictError{TripID: trip.ID, Seats: taken}
	}

	total, err := utils.ComputeFare(trip.Price, len(seats))
	if err != nil {
		return models.Booking{}, trip, domain.ValidationError{Field: "totalPrice", Msg: err.Error()}
	}
	if expected != 0 && expected != total {
		return models.Booking{}, trip, domain.ValidationError{
			Field: "totalPrice",
			Msg:   "expected " + utils.FormatRupeePlain(total) + ", got " + utils.FormatRupeePlain(expected),
		}
	}

	b := models.Booking{
		ID:            s.newID(),
		TripID:        trip.ID,
		SeatNumbers:   seats,
		PassengerName: name,
		UserID:        userID,
		TotalPrice:    total,
		CreatedAt:     s.now(),
	}
	if err := s.Store.CommitReservation(ctx, b); err != nil {
		return models.Booking{}, trip, storeErr("reserve", err)
	}
	return b, trip, nil
}

// Cancel releases a booking's seats and removes it. A second cancel of the
// same id returns NotFoundError.
func (s *ReservationService) Cancel(ctx context.Context, bookingID string) error {
	rc := domain.FromContext(ctx)
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return domain.ValidationError{Field: "bookingId", Msg: "required"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	b, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return storeErr("cancel", err)
	}
	unlock, err := s.locks.acquire(ctx, b.TripID)
	if err != nil {
		return domain.StoreTimeoutError{Op: "cancel", Err: err}
	}
	released, err := s.Store.ReleaseBooking(ctx, bookingID)
	unlock()
	if err != nil {
		return storeErr("cancel", err)
	}

	utils.LogEvent(rc.RequestID, "reservation", "cancelled",
		"booking "+released.ID+" seats "+utils.JoinSeats(released.SeatNumbers))

	trip, err := s.Store.GetTrip(ctx, released.TripID)
	if err != nil {
		trip = models.Trip{ID: released.TripID}
	}
	s.notify(rc.RequestID, notify.KindBookingCancelled, released, trip)
	return nil
}

// ListBookingsFor returns active bookings whose passenger name matches
// exactly, each joined with its trip.
func (s *ReservationService) ListBookingsFor(ctx context.Context, passengerName string) ([]models.BookingDetail, error) {
	name := utils.NormalizeSpace(passengerName)
	if name == "" {
		return nil, domain.ValidationError{Field: "name", Msg: "required"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	out, err := s.Store.ListBookingsByPassenger(ctx, name)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	return out, nil
}

func (s *ReservationService) GetBooking(ctx context.Context, id string) (models.BookingDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	b, err := s.Store.GetBooking(ctx, strings.TrimSpace(id))
	if err != nil {
		return models.BookingDetail{}, storeErr("get booking", err)
	}
	d := models.BookingDetail{Booking: b}
	if trip, err := s.Store.GetTrip(ctx, b.TripID); err == nil {
		d.Trip = models.SummaryOf(trip)
	}
	return d, nil
}

// notify hands the message to the queue. Failures are logged and never
// reach the caller.
func (s *ReservationService) notify(requestID, kind string, b models.Booking, trip models.Trip) string {
	if s.Notifier == nil {
		return ""
	}
	ref, err := s.Notifier.Enqueue(notify.Message{
		Kind:          kind,
		RequestID:     requestID,
		BookingID:     b.ID,
		PassengerName: b.PassengerName,
		Source:        trip.Source,
		Destination:   trip.Destination,
		Date:          trip.Date,
		Seats:         utils.JoinSeats(b.SeatNumbers),
		TotalPrice:    b.TotalPrice,
		CreatedAt:     s.now(),
	})
	if err != nil {
		utils.Event(requestID, "reservation", "notify").WithError(err).Warn("notification not queued")
		return ""
	}
	return ref
}

func normalizeSeats(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, domain.InvalidSeatError{Msg: "no seats requested"}
	}
	seats := make([]string, 0, len(raw))
	for _, r := range raw {
		n := utils.NormalizeSeat(r)
		if n == "" {
			return nil, domain.InvalidSeatError{Msg: "empty seat number"}
		}
		seats = append(seats, n)
	}
	if dup := utils.Duplicates(seats); len(dup) > 0 {
		return nil, domain.InvalidSeatError{Seats: dup, Msg: "duplicate seats"}
	}
	return seats, nil
}

// storeErr maps deadline expiry to StoreTimeoutError and passes typed domain
// errors through.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !domain.IsStoreTimeout(err) {
		return domain.StoreTimeoutError{Op: op, Err: err}
	}
	return err
}
