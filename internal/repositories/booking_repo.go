package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	intconfig "busyatri/internal/config"
	intdb "busyatri/internal/db"
	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
	"busyatri/internal/utils"
)

type BookingRepo struct {
	DB *sql.DB
}

func (r BookingRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Reserve locks the requested seat rows, verifies every one is free, flips
// them to booked and inserts the booking, all inside one transaction.
func (r BookingRepo) Reserve(ctx context.Context, b models.Booking) error {
	if len(b.SeatNumbers) == 0 {
		return domain.InvalidSeatError{Msg: "no seats requested"}
	}
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return mapMySQLError("reserve", err)
	}
	committed := false
	defer rollback(tx, &committed)

	seatArgs := make([]any, 0, len(b.SeatNumbers)+1)
	seatArgs = append(seatArgs, b.TripID)
	for _, s := range b.SeatNumbers {
		seatArgs = append(seatArgs, s)
	}
	ph := intdb.Placeholders(len(b.SeatNumbers))

	rows, err := tx.QueryContext(ctx, `SELECT seat_number, is_booked FROM trip_seats WHERE trip_id=? AND seat_number IN (`+ph+`) FOR UPDATE`, seatArgs...)
	if err != nil {
		return mapMySQLError("reserve", err)
	}
	state := make(map[string]bool, len(b.SeatNumbers))
	for rows.Next() {
		var number string
		var booked bool
		if err := rows.Scan(&number, &booked); err != nil {
			rows.Close()
			return err
		}
		state[number] = booked
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return mapMySQLError("reserve", err)
	}
	rows.Close()

	if len(state) == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips WHERE id=?`, b.TripID).Scan(&exists)
		if err != nil {
			return mapMySQLError("reserve", err)
		}
		if exists == 0 {
			return domain.NotFoundError{Resource: "trip", ID: b.TripID}
		}
	}

	var missing, taken []string
	for _, s := range b.SeatNumbers {
		booked, ok := state[s]
		switch {
		case !ok:
			missing = append(missing, s)
		case booked:
			taken = append(taken, s)
		}
	}
	if len(missing) > 0 {
		return domain.InvalidSeatError{Seats: missing, Msg: "seats not on trip"}
	}
	if len(taken) > 0 {
		return domain.SeatConflictError{TripID: b.TripID, Seats: taken}
	}

	updArgs := make([]any, 0, len(seatArgs)+1)
	updArgs = append(updArgs, b.ID)
	updArgs = append(updArgs, seatArgs...)
	res, err := tx.ExecContext(ctx, `UPDATE trip_seats SET is_booked=1, booking_id=? WHERE trip_id=? AND is_booked=0 AND seat_number IN (`+ph+`)`, updArgs...)
	if err != nil {
		return mapMySQLError("reserve", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != int64(len(b.SeatNumbers)) {
		return domain.SeatConflictError{TripID: b.TripID}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (id, trip_id, passenger_name, user_id, seat_numbers, total_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.TripID,
		b.PassengerName,
		intdb.NullIfEmpty(b.UserID),
		strings.Join(b.SeatNumbers, ","),
		b.TotalPrice,
		b.CreatedAt,
	); err != nil {
		return mapMySQLError("reserve", err)
	}

	if err := tx.Commit(); err != nil {
		return mapMySQLError("reserve", err)
	}
	committed = true
	return nil
}

// Cancel frees the booking's seats and deletes the booking row in one
// transaction, returning the removed booking.
func (r BookingRepo) Cancel(ctx context.Context, id string) (models.Booking, error) {
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return models.Booking{}, mapMySQLError("cancel", err)
	}
	committed := false
	defer rollback(tx, &committed)

	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
		}
		return models.Booking{}, mapMySQLError("cancel", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE trip_seats SET is_booked=0, booking_id=NULL WHERE trip_id=? AND booking_id=?`, b.TripID, b.ID); err != nil {
		return models.Booking{}, mapMySQLError("cancel", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id=?`, b.ID); err != nil {
		return models.Booking{}, mapMySQLError("cancel", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Booking{}, mapMySQLError("cancel", err)
	}
	committed = true
	return b, nil
}

const bookingColumns = `id, trip_id, passenger_name, COALESCE(user_id,''), seat_numbers, total_price, created_at`

func scanBooking(row rowScanner) (models.Booking, error) {
	var b models.Booking
	var seats string
	if err := row.Scan(
		&b.ID,
		&b.TripID,
		&b.PassengerName,
		&b.UserID,
		&seats,
		&b.TotalPrice,
		&b.CreatedAt,
	); err != nil {
		return models.Booking{}, err
	}
	b.SeatNumbers = utils.SplitSeatList(seats)
	return b, nil
}

func (r BookingRepo) GetByID(ctx context.Context, id string) (models.Booking, error) {
	b, err := scanBooking(r.db().QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
		}
		return models.Booking{}, mapMySQLError("get booking", err)
	}
	return b, nil
}

// ListByPassenger returns bookings for an exact passenger name joined with
// their trip, in insertion order.
func (r BookingRepo) ListByPassenger(ctx context.Context, name string) ([]models.BookingDetail, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT
			b.id, b.trip_id, b.passenger_name, COALESCE(b.user_id,''), b.seat_numbers, b.total_price, b.created_at,
			COALESCE(t.source,''), COALESCE(t.destination,''), COALESCE(t.trip_date,''), COALESCE(t.departure_time,''), COALESCE(t.price,0)
		FROM bookings b
		LEFT JOIN trips t ON t.id = b.trip_id
		WHERE b.passenger_name = BINARY ?
		ORDER BY b.created_at ASC, b.id ASC
	`, name)
	if err != nil {
		return nil, mapMySQLError("list bookings", err)
	}
	defer rows.Close()

	out := []models.BookingDetail{}
	for rows.Next() {
		var d models.BookingDetail
		var seats string
		if err := rows.Scan(
			&d.ID,
			&d.TripID,
			&d.PassengerName,
			&d.UserID,
			&seats,
			&d.TotalPrice,
			&d.CreatedAt,
			&d.Trip.Source,
			&d.Trip.Destination,
			&d.Trip.Date,
			&d.Trip.DepartureTime,
			&d.Trip.Price,
		); err != nil {
			return out, err
		}
		d.SeatNumbers = utils.SplitSeatList(seats)
		d.Trip.ID = d.TripID
		out = append(out, d)
	}
	return out, mapMySQLError("list bookings", rows.Err())
}
